package testutil

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"
)

// ErrDownloadFailed is returned by StubDownloader for failing URLs.
var ErrDownloadFailed = errors.New("stub download failed")

// StubDownloader writes fixed bytes to the destination. It can be told to fail
// for specific URLs and records peak concurrency.
type StubDownloader struct {
	// Content is written to every destination. Nil means "content of <url>".
	Content []byte
	// Delay is slept inside Download, so concurrent calls overlap.
	Delay time.Duration

	mu          sync.Mutex
	fail        map[string]int
	calls       map[string]int
	inFlight    int
	maxInFlight int
}

func NewStubDownloader() *StubDownloader {
	return &StubDownloader{
		fail:  make(map[string]int),
		calls: make(map[string]int),
	}
}

// FailURL makes the next n downloads of url fail. n < 0 fails every time.
func (d *StubDownloader) FailURL(url string, n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fail[url] = n
}

// Calls returns how many times url was requested.
func (d *StubDownloader) Calls(url string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls[url]
}

// TotalCalls returns the number of Download calls across all URLs.
func (d *StubDownloader) TotalCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	total := 0
	for _, n := range d.calls {
		total += n
	}
	return total
}

// MaxInFlight returns the highest number of concurrent Download calls seen.
func (d *StubDownloader) MaxInFlight() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.maxInFlight
}

func (d *StubDownloader) Download(ctx context.Context, url, dest string) error {
	d.mu.Lock()
	d.calls[url]++
	d.inFlight++
	if d.inFlight > d.maxInFlight {
		d.maxInFlight = d.inFlight
	}
	shouldFail := false
	if n, ok := d.fail[url]; ok && n != 0 {
		shouldFail = true
		if n > 0 {
			d.fail[url] = n - 1
		}
	}
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.inFlight--
		d.mu.Unlock()
	}()

	if d.Delay > 0 {
		select {
		case <-time.After(d.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if shouldFail {
		return ErrDownloadFailed
	}

	content := d.Content
	if content == nil {
		content = []byte("content of " + url)
	}
	return os.WriteFile(dest, content, 0644)
}
