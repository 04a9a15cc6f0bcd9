package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"signal_engine/internal/models"

	"github.com/dop251/goja"
)

// ErrTimeout — сгенерённый код не уложился в лимит и был прерван.
var ErrTimeout = errors.New("sandbox: execution timed out")

var errDeadline = errors.New("deadline")

// Sandbox гоняет сгенерённый код в изолированном goja-рантайме: свежая VM
// на каждый вызов, в глобалах только view и ta, наружу никакого хоста.
//
// Контракт с генерацией: condition-код определяет evaluate(view) -> bool,
// series-код — series(view) -> {indicatorId: [{x, y, ...}]}.
type Sandbox struct {
	timeout time.Duration
}

func New(timeout time.Duration) *Sandbox {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Sandbox{timeout: timeout}
}

// EvaluateCondition — matched/not-matched. Паники и JS-исключения приходят
// как err, зависший код убивается по таймауту.
func (s *Sandbox) EvaluateCondition(ctx context.Context, code string, view models.MarketDataView) (bool, error) {
	res, err := s.run(ctx, code, "evaluate", view)
	if err != nil {
		return false, err
	}
	return res.ToBoolean(), nil
}

// EvaluateSeries — индикаторные серии для графика. Вызывается только после
// матча; любые ошибки здесь нефатальны для сигнала (решает вызывающий).
func (s *Sandbox) EvaluateSeries(ctx context.Context, code string, view models.MarketDataView, decls []models.IndicatorDecl) (models.IndicatorSeries, error) {
	res, err := s.run(ctx, code, "series", view)
	if err != nil {
		return nil, err
	}
	return ConvertSeries(res.Export(), decls)
}

func (s *Sandbox) run(ctx context.Context, code, entry string, view models.MarketDataView) (goja.Value, error) {
	vm := goja.New()
	installView(vm, view)
	installTA(vm)

	// обе ручки останова: жёсткий таймер + отмена контекста
	timer := time.AfterFunc(s.timeout, func() { vm.Interrupt(errDeadline) })
	defer timer.Stop()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			vm.Interrupt(ctx.Err())
		case <-done:
		}
	}()

	res, err := s.call(vm, code, entry)
	if err != nil {
		var iErr *goja.InterruptedError
		if errors.As(err, &iErr) {
			if v, ok := iErr.Value().(error); ok && errors.Is(v, context.Canceled) {
				return nil, v
			}
			return nil, ErrTimeout
		}
		return nil, err
	}
	return res, nil
}

func (s *Sandbox) call(vm *goja.Runtime, code, entry string) (res goja.Value, err error) {
	// паника внутри Go-хелперов не должна ронять воркера
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("sandbox panic: %v", p)
		}
	}()

	if _, err = vm.RunString(code); err != nil {
		return nil, err
	}

	fn, ok := goja.AssertFunction(vm.Get(entry))
	if !ok {
		return nil, fmt.Errorf("code must define %s(view)", entry)
	}
	return fn(goja.Undefined(), vm.Get("view"))
}
