//go:build integration

package storage

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// setupQdrant creates a store on a throwaway alias.
// Skips test if Qdrant is not running.
func setupQdrant(t *testing.T) *QdrantStore {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	alias := "test_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	s, err := NewQdrantStore(ctx, QdrantConfig{
		Host:          "localhost",
		Port:          6334,
		Collection:    alias,
		HealthTimeout: 3 * time.Second,
	})
	if err != nil {
		t.Skipf("Qdrant not available: %v", err)
	}

	t.Cleanup(func() {
		ctx := context.Background()
		_ = s.client.DeleteAlias(ctx, alias)
		if collections, err := s.client.ListCollections(ctx); err == nil {
			for _, name := range collections {
				if strings.HasPrefix(name, alias+"_") {
					_ = s.client.DeleteCollection(ctx, name)
				}
			}
		}
		s.Close()
	})
	return s
}

func TestQdrantStoreContract(t *testing.T) {
	testStoreContract(t, setupQdrant(t))
}

func TestQdrantReplaceKeepsPreviousVersionUntilNextSwap(t *testing.T) {
	s := setupQdrant(t)
	ctx := context.Background()

	var versions []string
	for range 3 {
		require.NoError(t, s.ReplaceAll(ctx, fixture()))
		target, err := s.aliasTarget(ctx)
		require.NoError(t, err)
		versions = append(versions, target)
	}

	exists, err := s.client.CollectionExists(ctx, versions[0])
	require.NoError(t, err)
	require.False(t, exists, "two swaps old")

	exists, err = s.client.CollectionExists(ctx, versions[1])
	require.NoError(t, err)
	require.True(t, exists, "previous version must outlive the swap")
}

func TestQdrantSearchDuringReplace(t *testing.T) {
	s := setupQdrant(t)
	ctx := context.Background()
	require.NoError(t, s.ReplaceAll(ctx, fixture()))

	stop := make(chan struct{})
	errs := make(chan error, 1)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			got, err := s.Search(ctx, []float32{1, 0, 0}, 3, 15)
			if err == nil && len(got) != 3 {
				err = fmt.Errorf("search returned %d passages mid-swap", len(got))
			}
			if err != nil {
				select {
				case errs <- err:
				default:
				}
				return
			}
		}
	}()

	for range 2 {
		require.NoError(t, s.ReplaceAll(ctx, fixture()))
	}
	close(stop)
	wg.Wait()

	select {
	case err := <-errs:
		t.Fatal(err)
	default:
	}
}

func TestPostgresStoreContract(t *testing.T) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	table := "test_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	s, err := NewPostgresStore(ctx, PostgresConfig{URL: url, Table: table})
	if err != nil {
		t.Skipf("Postgres not available: %v", err)
	}
	t.Cleanup(func() {
		_, _ = s.pool.Exec(context.Background(), "DROP TABLE IF EXISTS "+s.table)
		s.Close()
	})

	testStoreContract(t, s)
}
