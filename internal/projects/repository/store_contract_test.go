package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoSim-25-26J-441/codegen-backend/internal/projects/domain"
)

func newTestProject(name string, createdAt time.Time) *domain.Project {
	return &domain.Project{
		ID:          uuid.NewString(),
		Name:        name,
		Description: "online store",
		Status:      domain.StatusInterviewing,
		CreatedAt:   createdAt,
	}
}

func statusPtr(s domain.Status) *domain.Status { return &s }

// runStoreContract exercises the behaviour every Store must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		s := newStore(t)
		p := newTestProject("Shop", time.Time{})
		p.Provider = "openai"

		created, err := s.Create(ctx, p)
		require.NoError(t, err)
		assert.False(t, created.CreatedAt.IsZero())

		got, err := s.Get(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, p.ID, got.ID)
		assert.Equal(t, "Shop", got.Name)
		assert.Equal(t, domain.StatusInterviewing, got.Status)
		assert.Equal(t, "openai", got.Provider)
		assert.Nil(t, got.PendingRequirements)
		assert.True(t, created.CreatedAt.Equal(got.CreatedAt))
	})

	t.Run("duplicate id", func(t *testing.T) {
		s := newStore(t)
		p := newTestProject("Shop", time.Time{})
		_, err := s.Create(ctx, p)
		require.NoError(t, err)
		_, err = s.Create(ctx, p)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("get missing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(ctx, uuid.NewString())
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("update applies patch", func(t *testing.T) {
		s := newStore(t)
		p := newTestProject("Shop", time.Time{})
		_, err := s.Create(ctx, p)
		require.NoError(t, err)

		reqs := []string{"auth", "catalog"}
		files := []domain.CodeFile{{Path: "main.go", Content: "package main"}}
		done := true
		updated, err := s.Update(ctx, p.ID, domain.StatusInterviewing, domain.Patch{
			Status:              statusPtr(domain.StatusAwaitingRequirementsApproval),
			AppendHistory:       []domain.ConversationEntry{{Role: domain.SpeakerAgent, Message: "q?"}},
			InterviewComplete:   &done,
			PendingRequirements: &reqs,
			PendingCode:         &files,
		})
		require.NoError(t, err)
		assert.Equal(t, domain.StatusAwaitingRequirementsApproval, updated.Status)

		got, err := s.Get(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusAwaitingRequirementsApproval, got.Status)
		assert.Equal(t, reqs, got.PendingRequirements)
		assert.Equal(t, files, got.PendingCode)
		assert.True(t, got.InterviewComplete)
		assert.Equal(t, []domain.ConversationEntry{{Role: domain.SpeakerAgent, Message: "q?"}}, got.ConversationHistory)
		assert.False(t, got.UpdatedAt.Before(got.CreatedAt))

		var cleared []string
		_, err = s.Update(ctx, p.ID, domain.StatusAwaitingRequirementsApproval, domain.Patch{
			Status:              statusPtr(domain.StatusRejected),
			PendingRequirements: &cleared,
		})
		require.NoError(t, err)
		got, err = s.Get(ctx, p.ID)
		require.NoError(t, err)
		assert.Nil(t, got.PendingRequirements)
	})

	t.Run("update with stale status", func(t *testing.T) {
		s := newStore(t)
		p := newTestProject("Shop", time.Time{})
		_, err := s.Create(ctx, p)
		require.NoError(t, err)

		_, err = s.Update(ctx, p.ID, domain.StatusGeneratingCode, domain.Patch{Status: statusPtr(domain.StatusAwaitingCodeApproval)})
		assert.ErrorIs(t, err, domain.ErrStaleState)

		got, err := s.Get(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusInterviewing, got.Status)
	})

	t.Run("update missing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Update(ctx, uuid.NewString(), domain.StatusInterviewing, domain.Patch{})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("claim stale project once", func(t *testing.T) {
		s := newStore(t)
		p := newTestProject("Shop", time.Now().Add(-time.Hour))
		_, err := s.Create(ctx, p)
		require.NoError(t, err)
		staleBefore := time.Now().Add(-time.Minute)

		ok, err := s.Claim(ctx, p.ID, domain.StatusAnalyzing, staleBefore)
		require.NoError(t, err)
		assert.False(t, ok, "status mismatch")

		const claimers = 8
		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			wins int
		)
		for i := 0; i < claimers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := s.Claim(ctx, p.ID, domain.StatusInterviewing, staleBefore)
				assert.NoError(t, err)
				if ok {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, wins)

		got, err := s.Get(ctx, p.ID)
		require.NoError(t, err)
		assert.True(t, got.UpdatedAt.After(staleBefore))
		assert.Equal(t, domain.StatusInterviewing, got.Status)

		ok, err = s.Claim(ctx, uuid.NewString(), domain.StatusInterviewing, staleBefore)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("concurrent conditional writes", func(t *testing.T) {
		s := newStore(t)
		p := newTestProject("Shop", time.Time{})
		_, err := s.Create(ctx, p)
		require.NoError(t, err)

		const writers = 8
		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			wins int
		)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.Update(ctx, p.ID, domain.StatusInterviewing, domain.Patch{Status: statusPtr(domain.StatusAnalyzing)})
				if err == nil {
					mu.Lock()
					wins++
					mu.Unlock()
					return
				}
				assert.ErrorIs(t, err, domain.ErrStaleState)
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, wins)
	})

	t.Run("list newest first", func(t *testing.T) {
		s := newStore(t)
		base := time.Now().UTC().Truncate(time.Second)
		for i, name := range []string{"old", "mid", "new"} {
			_, err := s.Create(ctx, newTestProject(name, base.Add(time.Duration(i)*time.Minute)))
			require.NoError(t, err)
		}

		list, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, "new", list[0].Name)
		assert.Equal(t, "mid", list[1].Name)
		assert.Equal(t, "old", list[2].Name)
	})
}
