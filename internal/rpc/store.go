package rpc

import (
	"fmt"

	"poolchat/internal/linalg"
)

// LinearStore holds the weight shards uploaded to one worker, by name.
// It is owned by a single worker goroutine and is not safe for concurrent use.
type LinearStore struct {
	shards map[string]linalg.Matrix
}

func NewLinearStore() *LinearStore {
	return &LinearStore{shards: make(map[string]linalg.Matrix)}
}

// Add stores m under name, replacing any previous shard.
func (s *LinearStore) Add(name string, m linalg.Matrix) {
	s.shards[name] = m
}

// Remove drops the shard stored under name.
func (s *LinearStore) Remove(name string) error {
	if _, ok := s.shards[name]; !ok {
		return fmt.Errorf("unknown linear %q", name)
	}
	delete(s.shards, name)
	return nil
}

// Forward multiplies the shard stored under name by x.
func (s *LinearStore) Forward(name string, x []float32) ([]float32, error) {
	m, ok := s.shards[name]
	if !ok {
		return nil, fmt.Errorf("unknown linear %q", name)
	}
	return m.MulVec(x)
}

// Len returns the number of stored shards.
func (s *LinearStore) Len() int { return len(s.shards) }
