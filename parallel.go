package filevault

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/sirupsen/logrus"
)

// BatchItem is one file passed to StoreBatch
type BatchItem struct {
	ID        string
	Plaintext []byte
}

// StoreBatch stores every item under the same password using a bounded pool of workers.
// Key derivation and encryption run in parallel; frame writes and metadata flushes go
// through the same locks as Store. The returned slice has one error (or nil) per item,
// in input order. A panic while storing an item is reported as that item's error.
func (v *Vault) StoreBatch(items []BatchItem, password string) []error {
	errs := make([]error, len(items))
	if len(items) == 0 {
		return errs
	}

	numWorkers := v.config.Workers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	if numWorkers > len(items) {
		numWorkers = len(items)
	}

	var wg sync.WaitGroup
	jobChan := make(chan int, len(items))

	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobChan {
				errs[idx] = v.storeRecovered(items[idx], password)
			}
		}()
	}

	for i := range items {
		jobChan <- i
	}
	close(jobChan)
	wg.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
		}
	}
	v.logger.WithFields(logrus.Fields{
		"items":   len(items),
		"failed":  failed,
		"workers": numWorkers,
	}).Info("Batch stored")

	return errs
}

// storeRecovered runs Store and converts a panic into an error
func (v *Vault) storeRecovered(item BatchItem, password string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewEncryptionError("encrypt", item.ID, fmt.Errorf("panic in store worker: %v", r))
		}
	}()
	return v.Store(item.ID, item.Plaintext, password)
}
