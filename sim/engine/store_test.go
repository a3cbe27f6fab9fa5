package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_GetAfterPutIsFIFO(t *testing.T) {
	env := NewEnvironment(1)
	s := NewStore[int](env)
	s.Put(1)
	s.Put(2)
	s.Put(3)

	var got []int
	var drain func()
	drain = func() {
		s.Get(func(v int) error {
			got = append(got, v)
			drain()
			return nil
		})
	}
	drain()

	require.NoError(t, env.Run(1))
	assert.Equal(t, []int{1, 2, 3}, got)
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 1, s.Waiting())
}

func TestStore_GetSuspendsUntilPut(t *testing.T) {
	// GIVEN a getter waiting on an empty store
	env := NewEnvironment(1)
	s := NewStore[string](env)
	var receivedAt float64 = -1
	s.Get(func(v string) error {
		assert.Equal(t, "hello", v)
		receivedAt = env.Now()
		return nil
	})

	// WHEN an item is put at t=4
	require.NoError(t, env.Timeout(4, func() error {
		s.Put("hello")
		return nil
	}))
	require.NoError(t, env.Run(10))

	// THEN the getter resumes at t=4
	assert.Equal(t, 4.0, receivedAt)
}

func TestStore_WaitingGettersServedInOrder(t *testing.T) {
	env := NewEnvironment(1)
	s := NewStore[int](env)
	var who []string
	s.Get(func(int) error { who = append(who, "first"); return nil })
	s.Get(func(int) error { who = append(who, "second"); return nil })

	s.Put(7)
	s.Put(8)
	require.NoError(t, env.Run(1))

	assert.Equal(t, []string{"first", "second"}, who)
	assert.Equal(t, 0, s.Waiting())
}
