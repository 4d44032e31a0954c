package layout

// FieldKey names a record field shown in the two-column grid.
type FieldKey string

const (
	FieldBirthDate     FieldKey = "birth_date"
	FieldMotherName    FieldKey = "mother_name"
	FieldInsurance     FieldKey = "insurance"
	FieldPhysician     FieldKey = "physician"
	FieldSex           FieldKey = "sex"
	FieldAdmissionDate FieldKey = "admission_date"
	FieldAdmissionTime FieldKey = "admission_time"
)

// Slot is a fixed grid cell.
type Slot struct {
	Field  FieldKey
	Label  string
	Column int
	Row    int
}

// SlotTable places every grid field at a constant row and column so cards in
// a batch line up regardless of which values are empty. The first four
// fields fill the left column, the rest the right one.
var SlotTable = []Slot{
	{FieldBirthDate, "Nascimento", 0, 0},
	{FieldMotherName, "Mãe", 0, 1},
	{FieldInsurance, "Convênio", 0, 2},
	{FieldPhysician, "Médico", 0, 3},
	{FieldSex, "Sexo", 1, 0},
	{FieldAdmissionDate, "Admissão", 1, 1},
	{FieldAdmissionTime, "Hora", 1, 2},
}

// CardNumberLabel prefixes the printed card number.
const CardNumberLabel = "Carteirinha"

// TimestampLayout is the Go reference layout for DD/MM/YYYY HH:MM:SS.
const TimestampLayout = "02/01/2006 15:04:05"

// gridRows is the number of rows the grid reserves.
func gridRows() int {
	rows := 0
	for _, s := range SlotTable {
		if s.Row+1 > rows {
			rows = s.Row + 1
		}
	}
	return rows
}

// Value returns the record value shown in the given slot.
func (r Record) Value(f FieldKey) string {
	switch f {
	case FieldBirthDate:
		return r.BirthDate
	case FieldMotherName:
		return r.MotherName
	case FieldInsurance:
		return r.Insurance
	case FieldPhysician:
		return r.Physician
	case FieldSex:
		return r.Sex
	case FieldAdmissionDate:
		return r.AdmissionDate
	case FieldAdmissionTime:
		return r.AdmissionTime
	}
	return ""
}

func labelled(label, value string) string {
	if value == "" {
		return label + ":"
	}
	return label + ": " + value
}
