package layout

import "fmt"

// 自动缩放每次将两个字号同时减小 AutoFitStep 像素，最小不低于 MinFontSize。
const (
	AutoFitStep = 1
	MinFontSize = 8
)

// Violation is one broken fit constraint. Other is the index of the second
// element for overlaps and -1 for containment failures.
type Violation struct {
	Index  int
	Other  int
	Reason string
}

func (v Violation) String() string {
	if v.Other >= 0 {
		return fmt.Sprintf("element %d overlaps element %d: %s", v.Index, v.Other, v.Reason)
	}
	return fmt.Sprintf("element %d: %s", v.Index, v.Reason)
}

// Check 检查适配条件：每个 box 都在所属区域和 slot 内，每个 slot 都在区域内，
// 同一区域内任意两个元素的 box 或 slot 不相交。边框描在区域边缘上，不参与检查。
func Check(geo Geometry, elems []Element) []Violation {
	var out []Violation
	for i, e := range elems {
		if e.Role == RoleBorder {
			continue
		}
		zone := geo.Zone(e.Zone)
		if !zone.Contains(e.Box) {
			out = append(out, Violation{i, -1, fmt.Sprintf("%s box %+v leaves the %s zone", e.Role, e.Box, e.Zone)})
		}
		if !e.Slot.IsZero() {
			if !e.Slot.Contains(e.Box) {
				out = append(out, Violation{i, -1, fmt.Sprintf("%s box %+v overflows its slot %+v", e.Role, e.Box, e.Slot)})
			}
			if !zone.Contains(e.Slot) {
				out = append(out, Violation{i, -1, fmt.Sprintf("%s slot %+v leaves the %s zone", e.Role, e.Slot, e.Zone)})
			}
		}
		for j := i + 1; j < len(elems); j++ {
			o := elems[j]
			if o.Role == RoleBorder || o.Zone != e.Zone {
				continue
			}
			if e.Box.Intersects(o.Box) {
				out = append(out, Violation{i, j, fmt.Sprintf("%s box and %s box", e.Role, o.Role)})
			} else if !e.Slot.IsZero() && !o.Slot.IsZero() && e.Slot.Intersects(o.Slot) {
				out = append(out, Violation{i, j, fmt.Sprintf("%s slot and %s slot", e.Role, o.Role)})
			}
		}
	}
	return out
}

// Fits reports whether elems satisfy the fit predicate.
func Fits(geo Geometry, elems []Element) bool {
	return len(Check(geo, elems)) == 0
}

func shrink(size, k int) int {
	floor := min(size, MinFontSize)
	return max(size-k*AutoFitStep, floor)
}

// Candidates lists the configurations auto-fit tries, starting with cfg
// itself. Sizes never increase from one candidate to the next and the last
// candidate has both sizes at the floor (or at their configured value when
// that is already smaller).
func Candidates(cfg FontConfig) []FontConfig {
	steps := (max(cfg.NameSize, cfg.BaseSize) - MinFontSize) / AutoFitStep
	if steps < 0 {
		steps = 0
	}
	out := make([]FontConfig, 0, steps+1)
	for k := 0; k <= steps; k++ {
		c := cfg
		c.NameSize = shrink(cfg.NameSize, k)
		c.BaseSize = shrink(cfg.BaseSize, k)
		out = append(out, c)
	}
	return out
}

// Resolve 排版 rec。开启 cfg.AutoFit 时逐步缩小字号直到满足适配条件；
// 到达最小字号仍不满足时返回最小字号的结果并设置 Overflow，这不算错误。
// 未开启时按配置字号排版一次，无论是否适配都直接返回。
func Resolve(rec Record, cfg FontConfig, geo Geometry, opts BuildOptions) (Result, error) {
	art, err := prepare(rec, cfg, geo, opts)
	if err != nil {
		return Result{}, err
	}
	if !cfg.AutoFit {
		return build(rec, cfg, geo, opts, art)
	}

	var res Result
	for i, c := range Candidates(cfg) {
		res, err = build(rec, c, geo, opts, art)
		if err != nil {
			return Result{}, err
		}
		res.Attempts = i + 1
		if res.Fits {
			return res, nil
		}
	}
	res.Overflow = true
	return res, nil
}
