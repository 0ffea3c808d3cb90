package session

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBinding_SnapshotIsStable(t *testing.T) {
	b := NewBinding(Context{DatasetPath: "a.csv"})

	turn := b.Snapshot()
	b.Bind("b.csv")

	assert.Equal(t, "a.csv", turn.DatasetPath, "snapshot must not see later binds")
	assert.Equal(t, "b.csv", b.Snapshot().DatasetPath)
}

func TestContext_WithDatasetCopies(t *testing.T) {
	base := Context{}
	bound := base.WithDataset("x.csv")

	assert.Empty(t, base.DatasetPath)
	assert.Equal(t, "x.csv", bound.DatasetPath)
}

func TestContext_DatasetLabel(t *testing.T) {
	assert.Equal(t, "demo_data.csv (default)", Context{}.DatasetLabel("demo_data.csv (default)"))
	assert.Equal(t, "/tmp/u.csv", Context{DatasetPath: "/tmp/u.csv"}.DatasetLabel("ignored"))
}

func TestBinding_ConcurrentBinds(t *testing.T) {
	var zero Binding
	assert.Empty(t, zero.Snapshot().DatasetPath)

	b := NewBinding(Context{})
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			b.Bind(fmt.Sprintf("%d.csv", i))
		}(i)
		go func() {
			defer wg.Done()
			_ = b.Snapshot()
		}()
	}
	wg.Wait()
	assert.NotEmpty(t, b.Snapshot().DatasetPath)
}
