package services

import (
	"context"
	"errors"
	"time"
)

// idFormat yields 14 numeric characters at one-second resolution, so
// lexicographic order equals chronological order and the id stays
// human-decodable.
const idFormat = "20060102150405"

const maxIDAttempts = 5

var errIDExhausted = errors.New("could not allocate a unique post id")

// idAllocator derives post ids from the wall clock. The pre-check
// against the repository is an early exit only; the posts primary key
// is the real arbiter, and CreatePost retries allocation on an
// insert-time conflict.
type idAllocator struct {
	exists func(ctx context.Context, id string) (bool, error)
	now    func() time.Time
	sleep  func(time.Duration)
}

func newIDAllocator(exists func(ctx context.Context, id string) (bool, error)) *idAllocator {
	return &idAllocator{
		exists: exists,
		now:    time.Now,
		sleep:  time.Sleep,
	}
}

// Allocate returns an id not currently present in the repository.
// Collisions only happen when two posts land in the same wall-clock
// second, so each retry waits for the clock to advance. The loop is
// bounded to keep a stuck clock from spinning forever.
func (a *idAllocator) Allocate(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		candidate := a.now().UTC().Format(idFormat)

		taken, err := a.exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}

		a.sleep(time.Second)
	}
	return "", errIDExhausted
}
