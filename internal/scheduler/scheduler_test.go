package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storepulse/pkg/store/mysql"
)

type fakeLock struct {
	granted bool
	locks   int
	unlocks int
}

func (l *fakeLock) TryLock(context.Context) (bool, error) {
	l.locks++
	return l.granted, nil
}

func (l *fakeLock) Unlock(context.Context) error {
	l.unlocks++
	return nil
}

func (l *fakeLock) IsHeld() bool { return l.granted }

func newTestScheduler(schedules map[int64]*mysql.TaskSchedule, tickLock *fakeLock) (*Scheduler, *fakeExecutionStore, *Executor) {
	store := newFakeExecutionStore()
	scheduleStore := &fakeScheduleStore{schedules: schedules}
	executor := NewExecutor(scheduleStore, store, &fakeExecRunner{})

	s := NewScheduler(scheduleStore, executor, nil)
	if tickLock != nil {
		s = NewScheduler(scheduleStore, executor, tickLock)
	}
	return s, store, executor
}

func TestTick_FiresMatchingSchedule(t *testing.T) {
	schedule := dailySchedule(1)
	schedule.Hour = 3
	schedule.Minute = 30
	s, store, executor := newTestScheduler(map[int64]*mysql.TaskSchedule{1: schedule}, nil)

	s.tick(context.Background(), time.Date(2024, 5, 1, 3, 30, 0, 0, time.Local))
	executor.Wait()

	require.Len(t, store.records, 1)
	for _, exec := range store.records {
		assert.Equal(t, mysql.TriggerScheduled, exec.TriggerType)
		assert.Equal(t, mysql.ExecutionSuccess, exec.Status)
	}
}

func TestTick_IgnoresNonMatchingMinute(t *testing.T) {
	schedule := dailySchedule(1)
	schedule.Hour = 3
	schedule.Minute = 30
	s, store, executor := newTestScheduler(map[int64]*mysql.TaskSchedule{1: schedule}, nil)

	s.tick(context.Background(), time.Date(2024, 5, 1, 3, 31, 0, 0, time.Local))
	executor.Wait()

	assert.Empty(t, store.records)
}

func TestTick_MultipleSchedulesSameMinute(t *testing.T) {
	first := dailySchedule(1)
	second := dailySchedule(2)
	first.Hour, first.Minute = 3, 30
	second.Hour, second.Minute = 3, 30
	s, store, executor := newTestScheduler(map[int64]*mysql.TaskSchedule{1: first, 2: second}, nil)

	s.tick(context.Background(), time.Date(2024, 5, 1, 3, 30, 0, 0, time.Local))
	executor.Wait()

	assert.Len(t, store.records, 2)
}

func TestTick_LockHeldByAnotherInstance(t *testing.T) {
	schedule := dailySchedule(1)
	schedule.Hour = 3
	schedule.Minute = 30
	tickLock := &fakeLock{granted: false}
	s, store, executor := newTestScheduler(map[int64]*mysql.TaskSchedule{1: schedule}, tickLock)

	s.tick(context.Background(), time.Date(2024, 5, 1, 3, 30, 0, 0, time.Local))
	executor.Wait()

	assert.Empty(t, store.records)
	assert.Equal(t, 1, tickLock.locks)
	assert.Zero(t, tickLock.unlocks)
}

func TestTick_ReleasesLockAfterFiring(t *testing.T) {
	schedule := dailySchedule(1)
	schedule.Hour = 3
	schedule.Minute = 30
	tickLock := &fakeLock{granted: true}
	s, store, executor := newTestScheduler(map[int64]*mysql.TaskSchedule{1: schedule}, tickLock)

	s.tick(context.Background(), time.Date(2024, 5, 1, 3, 30, 0, 0, time.Local))
	executor.Wait()

	assert.Len(t, store.records, 1)
	assert.Equal(t, 1, tickLock.unlocks)
}

func TestStartStop(t *testing.T) {
	s, _, _ := newTestScheduler(nil, nil)

	assert.False(t, s.Running())
	s.Start(context.Background())
	s.Start(context.Background()) // second Start is a no-op
	assert.True(t, s.Running())
	s.Stop()
	s.Stop() // second Stop is a no-op
	assert.False(t, s.Running())
}
