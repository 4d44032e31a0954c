package export

import (
	"context"
	"image"

	"golang.org/x/sync/errgroup"

	"github.com/ByLCY/pulseira/errors"
	"github.com/ByLCY/pulseira/layout"
	"github.com/ByLCY/pulseira/renderer"
)

// card is the outcome of laying out and rendering one record.
type card struct {
	res layout.Result
	img *image.RGBA
	err error
}

// Render lays out and rasterizes a single record with r.
func (e *Exporter) Render(r renderer.Renderer, rec layout.Record, opts Options) (layout.Result, *image.RGBA, error) {
	res, err := layout.Resolve(rec, opts.Font, opts.Geometry, layout.BuildOptions{
		Fonts: r,
		QR:    e.QR,
		Logo:  opts.Logo,
		Now:   opts.Now,
	})
	if err != nil {
		return layout.Result{}, nil, err
	}
	img, err := r.Render(&res, opts.Geometry)
	if err != nil {
		return res, nil, err
	}
	return res, img, nil
}

// run 在最多 opts.Workers 个 goroutine 上渲染记录，并严格按输入顺序交给 emit。
// 同一时刻最多有 2*Workers 张已渲染的卡片等待 emit。渲染或 emit 的第一个错误
// 会停止提交后续记录，并以 *errors.BatchError 返回。
func (e *Exporter) run(ctx context.Context, records []layout.Record, opts Options, emit func(int, card) error) error {
	stop, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]chan card, len(records))
	for i := range results {
		results[i] = make(chan card, 1)
	}
	window := make(chan struct{}, 2*opts.Workers)
	pool := make(chan renderer.Renderer, opts.Workers)

	g := new(errgroup.Group)
	g.SetLimit(opts.Workers)
	submitted := make(chan int, 1)
	go func() {
		n := 0
		defer func() { submitted <- n }()
		for i := range records {
			if stop.Err() != nil {
				return
			}
			select {
			case window <- struct{}{}:
			case <-stop.Done():
				return
			}
			n++
			g.Go(func() error {
				var r renderer.Renderer
				select {
				case r = <-pool:
				default:
					r = e.NewRenderer()
				}
				res, img, err := e.Render(r, records[i], opts)
				results[i] <- card{res: res, img: img, err: err}
				select {
				case pool <- r:
				default:
				}
				return nil
			})
		}
	}()

	// 按输入顺序消费结果
	var failure error
	for i := range records {
		var c card
		select {
		case c = <-results[i]:
			<-window
		case <-stop.Done():
			c = card{err: stop.Err()}
		}
		if c.err == nil {
			c.err = emit(i, c)
		}
		if c.err != nil {
			failure = &errors.BatchError{Index: i, Attempted: len(records), Completed: i, Cause: c.err}
			break
		}
	}
	cancel()
	<-submitted
	_ = g.Wait()
	return failure
}
