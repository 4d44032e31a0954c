// Package records reads patient records from CSV and writes the CSV
// templates handed out to users.
package records

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ByLCY/pulseira/errors"
	"github.com/ByLCY/pulseira/layout"
)

// Column headers, in template order.
const (
	ColCardNumber    = "Número da carteirinha"
	ColName          = "Nome do paciente"
	ColBirthDate     = "Data de nascimento"
	ColMotherName    = "Nome da mãe"
	ColInsurance     = "Convênio"
	ColPhysician     = "Médico responsável"
	ColSex           = "Sexo"
	ColAdmissionDate = "Data de admissão"
	ColAdmissionTime = "Hora de admissão"
)

// Columns are the headers every import must carry.
var Columns = []string{
	ColCardNumber, ColName, ColBirthDate, ColMotherName, ColInsurance,
	ColPhysician, ColSex, ColAdmissionDate, ColAdmissionTime,
}

// ExtraColumns are the accepted spellings of the optional extra text
// column. The first one present wins.
var ExtraColumns = []string{"Texto adicional", "Texto Adicional"}

var bom = []byte{0xEF, 0xBB, 0xBF}

// ReadFile reads records from a CSV file.
func ReadFile(path string) ([]layout.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "open %s", path)
	}
	defer f.Close()
	recs, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return recs, nil
}

// Read parses UTF-8 CSV, with or without a byte order mark. The delimiter is
// a comma unless the header line only contains semicolons. Values are
// trimmed; rows whose cells are all empty are skipped.
func Read(r io.Reader) ([]layout.Record, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(bom)); err == nil && bytes.Equal(head, bom) {
		br.Discard(len(bom))
	}
	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	if line, _ := br.Peek(br.Buffered()); sniffSemicolon(line) {
		reader.Comma = ';'
	}

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.New(errors.ErrCodeInvalidInput, "csv is empty")
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read csv header")
	}
	idx := buildColumnIndex(header)
	var missing []string
	for _, col := range Columns {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "csv is missing expected columns: %s", strings.Join(missing, ", "))
	}
	extra := -1
	for _, col := range ExtraColumns {
		if i, ok := idx[col]; ok {
			extra = i
			break
		}
	}

	var out []layout.Record
	for {
		cells, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read csv")
		}
		if blank(cells) {
			continue
		}
		rec := layout.Record{
			CardNumber:    getCell(cells, idx[ColCardNumber]),
			Name:          getCell(cells, idx[ColName]),
			BirthDate:     getCell(cells, idx[ColBirthDate]),
			MotherName:    getCell(cells, idx[ColMotherName]),
			Insurance:     getCell(cells, idx[ColInsurance]),
			Physician:     getCell(cells, idx[ColPhysician]),
			Sex:           getCell(cells, idx[ColSex]),
			AdmissionDate: getCell(cells, idx[ColAdmissionDate]),
			AdmissionTime: getCell(cells, idx[ColAdmissionTime]),
			Extra:         getCell(cells, extra),
		}
		// 用起始行号定位记录，引号内的换行不会让后续行号错位。
		line, _ := reader.FieldPos(0)
		switch {
		case rec.CardNumber == "":
			return nil, errors.New(errors.ErrCodeInvalidInput, "line %d: empty %s", line, ColCardNumber)
		case rec.Name == "":
			return nil, errors.New(errors.ErrCodeInvalidInput, "line %d: empty %s", line, ColName)
		}
		out = append(out, rec)
	}
	return out, nil
}

// sniffSemicolon reports whether the first line of buf uses semicolons as
// the delimiter.
func sniffSemicolon(buf []byte) bool {
	if i := bytes.IndexByte(buf, '\n'); i >= 0 {
		buf = buf[:i]
	}
	return bytes.IndexByte(buf, ';') >= 0 && bytes.IndexByte(buf, ',') < 0
}

func buildColumnIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if _, dup := idx[h]; !dup {
			idx[h] = i
		}
	}
	return idx
}

func getCell(cells []string, idx int) string {
	if idx < 0 || idx >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[idx])
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Example is the two-patient sample shipped as the example template.
func Example() []layout.Record {
	return []layout.Record{
		{
			CardNumber: "123456", Name: "João Silva", BirthDate: "1990-05-12",
			MotherName: "Maria Silva", Insurance: "SUS", Physician: "Dra. Aline",
			Sex: "M", AdmissionDate: "2025-10-15", AdmissionTime: "14:30",
		},
		{
			CardNumber: "987654", Name: "Ana Pereira", BirthDate: "1985-08-01",
			MotherName: "Clara Pereira", Insurance: "Particular", Physician: "Dr. Bruno",
			Sex: "F", AdmissionDate: "2025-10-15", AdmissionTime: "15:10",
		},
	}
}

// Write writes recs as CSV with the expected header. The extra text column
// is only added when some record uses it.
func Write(w io.Writer, recs []layout.Record) error {
	withExtra := false
	for _, r := range recs {
		if r.Extra != "" {
			withExtra = true
			break
		}
	}
	cw := csv.NewWriter(w)
	header := append([]string(nil), Columns...)
	if withExtra {
		header = append(header, ExtraColumns[0])
	}
	if err := cw.Write(header); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "write csv header")
	}
	for _, r := range recs {
		row := []string{
			r.CardNumber, r.Name, r.BirthDate, r.MotherName, r.Insurance,
			r.Physician, r.Sex, r.AdmissionDate, r.AdmissionTime,
		}
		if withExtra {
			row = append(row, r.Extra)
		}
		if err := cw.Write(row); err != nil {
			return errors.Wrap(errors.ErrCodeIO, err, "write csv row")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "write csv")
	}
	return nil
}

// WriteExample writes the example template.
func WriteExample(w io.Writer) error { return Write(w, Example()) }

// WriteEmpty writes the header-only template.
func WriteEmpty(w io.Writer) error { return Write(w, nil) }

// Template names accepted by WriteTemplate.
const (
	TemplateExample = "example"
	TemplateEmpty   = "empty"
)

// WriteTemplate writes the named template to path.
func WriteTemplate(name, path string) (err error) {
	var write func(io.Writer) error
	switch name {
	case TemplateExample:
		write = WriteExample
	case TemplateEmpty:
		write = WriteEmpty
	default:
		return errors.New(errors.ErrCodeInvalidInput, "unknown template %q (want %s or %s)", name, TemplateExample, TemplateEmpty)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "create %s", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrap(errors.ErrCodeIO, cerr, "close %s", path)
		}
	}()
	return write(f)
}
