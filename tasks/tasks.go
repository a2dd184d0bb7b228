package tasks

import (
	"context"
	"log"
)

// Task is one best-effort post-commit side effect.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// RunAll executes every task in order. Failures (including panics) are
// logged and never propagate; the primary result has already been committed
// by the time these run.
func RunAll(ctx context.Context, list []Task) {
	for _, t := range list {
		runOne(ctx, t)
	}
}

func runOne(ctx context.Context, t Task) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("task %s panicked: %v", t.Name, r)
		}
	}()
	if err := t.Run(ctx); err != nil {
		log.Printf("task %s failed: %v", t.Name, err)
	}
}
