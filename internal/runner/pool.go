package runner

import "sync"

// Map calls fn on every input with at most maxWorkers running at once.
// Results and errors are returned in input order; errs is nil when every
// call succeeded.
func Map[In, Out any](maxWorkers int, inputs []In, fn func(In) (Out, error)) ([]Out, []error) {
	if maxWorkers < 1 {
		maxWorkers = 1
	}

	var (
		wg     sync.WaitGroup
		failed bool
		mu     sync.Mutex
	)
	out := make([]Out, len(inputs))
	errs := make([]error, len(inputs))
	sem := make(chan struct{}, maxWorkers)

	for i, in := range inputs {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, in In) {
			defer wg.Done()
			defer func() { <-sem }()
			v, err := fn(in)
			if err != nil {
				mu.Lock()
				failed = true
				mu.Unlock()
			}
			out[i], errs[i] = v, err
		}(i, in)
	}
	wg.Wait()
	if !failed {
		return out, nil
	}
	return out, errs
}

// FirstError returns the first non-nil error in input order.
func FirstError(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
