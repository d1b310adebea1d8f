package pipeline

// Processor is one processing stage over a shared context value.
type Processor[C any] interface {
	Process(ctx C) C
}

// ProcessorFunc adapts a function to a Processor.
type ProcessorFunc[C any] func(ctx C) C

func (f ProcessorFunc[C]) Process(ctx C) C {
	return f(ctx)
}

// Pipeline represents a sequence of processing stages.
type Pipeline[C any] struct {
	processors []Processor[C]
	halt       func(C) bool
}

func New[C any](processors ...Processor[C]) *Pipeline[C] {
	return &Pipeline[C]{processors: processors}
}

// HaltWhen makes Run stop before the next stage once cond reports true.
func (p *Pipeline[C]) HaltWhen(cond func(C) bool) *Pipeline[C] {
	p.halt = cond
	return p
}

// Len is the number of stages.
func (p *Pipeline[C]) Len() int {
	return len(p.processors)
}

// Run executes the pipeline.
func (p *Pipeline[C]) Run(initialCtx C) C {
	ctx := initialCtx
	for _, processor := range p.processors {
		if p.halt != nil && p.halt(ctx) {
			break
		}
		ctx = processor.Process(ctx)
		// Continue on conflicts: every stage reports into the context and
		// later stages still see partial results.
	}
	return ctx
}
