package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/sanurielf/scheduler/cache"
	"github.com/sanurielf/scheduler/logger"
)

// LockTestSuite 分布式锁测试套件.
//
// 多个 Redis 实例共享同一个内存缓存，模拟多实例部署.
type LockTestSuite struct {
	suite.Suite
	cache cache.Cache
	ctx   context.Context
}

func TestLockSuite(t *testing.T) {
	suite.Run(t, new(LockTestSuite))
}

func (s *LockTestSuite) SetupTest() {
	c, err := cache.NewMemoryCache(nil, logger.NewNop())
	s.Require().NoError(err)
	s.cache = c
	s.ctx = context.Background()
}

func (s *LockTestSuite) TearDownTest() {
	s.cache.Close()
}

func (s *LockTestSuite) newLocker(opts ...RedisOption) *Redis {
	return NewRedis(s.cache, opts...)
}

// dueKey 与调度器使用的锁键格式一致.
func dueKey(job string, due time.Time) string {
	return fmt.Sprintf("%s:%d", job, due.Unix())
}

func (s *LockTestSuite) TestTryLock() {
	locker := s.newLocker()
	key := dueKey("weekly-report", time.Date(2024, 1, 5, 4, 0, 0, 0, time.UTC))

	acquired, err := locker.TryLock(s.ctx, key, time.Minute)
	s.NoError(err)
	s.True(acquired)
	s.True(locker.IsHeld(key))

	exists, err := s.cache.Exists(s.ctx, DefaultKeyPrefix+key)
	s.NoError(err)
	s.True(exists)
}

func (s *LockTestSuite) TestTryLock_OnlyOneInstanceWins() {
	due := time.Date(2024, 1, 5, 4, 0, 0, 0, time.UTC)
	key := dueKey("weekly-report", due)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			acquired, err := s.newLocker().TryLock(s.ctx, key, time.Minute)
			s.NoError(err)
			if acquired {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), wins.Load())
}

func (s *LockTestSuite) TestTryLock_NextDueIsIndependent() {
	a, b := s.newLocker(), s.newLocker()
	due := time.Date(2024, 1, 5, 4, 0, 0, 0, time.UTC)

	ok, _ := a.TryLock(s.ctx, dueKey("weekly-report", due), time.Minute)
	s.True(ok)

	ok, _ = b.TryLock(s.ctx, dueKey("weekly-report", due), time.Minute)
	s.False(ok)

	ok, _ = b.TryLock(s.ctx, dueKey("weekly-report", due.AddDate(0, 0, 7)), time.Minute)
	s.True(ok)
}

func (s *LockTestSuite) TestTryLock_ExpiresByTTL() {
	a, b := s.newLocker(), s.newLocker()

	ok, _ := a.TryLock(s.ctx, "ttl", 20*time.Millisecond)
	s.True(ok)

	s.Eventually(func() bool {
		ok, err := b.TryLock(s.ctx, "ttl", time.Minute)
		return err == nil && ok
	}, time.Second, 10*time.Millisecond)
}

func (s *LockTestSuite) TestTryLock_PrunesExpiredKeys() {
	locker := s.newLocker()
	due := time.Date(2024, 1, 5, 4, 0, 0, 0, time.UTC)

	for i := range 1000 {
		ok, err := locker.TryLock(s.ctx, dueKey("weekly-report", due.Add(time.Duration(i)*7*24*time.Hour)), time.Millisecond)
		s.Require().NoError(err)
		s.Require().True(ok)
	}
	time.Sleep(20 * time.Millisecond)

	ok, err := locker.TryLock(s.ctx, "next", time.Minute)
	s.Require().NoError(err)
	s.True(ok)

	locker.mu.Lock()
	defer locker.mu.Unlock()
	s.Len(locker.held, 1)
	s.Contains(locker.held, "next")
}

func (s *LockTestSuite) TestExtend_KeepsKeyAfterShortTTL() {
	locker := s.newLocker()
	_, _ = locker.TryLock(s.ctx, "renewed", 50*time.Millisecond)
	s.Require().NoError(locker.Extend(s.ctx, "renewed", time.Minute))
	time.Sleep(80 * time.Millisecond)

	_, _ = locker.TryLock(s.ctx, "other", time.Minute)
	s.True(locker.IsHeld("renewed"))
}

func (s *LockTestSuite) TestLock() {
	holder := s.newLocker()
	waiter := s.newLocker(WithRetryWait(5 * time.Millisecond))

	s.NoError(holder.Lock(s.ctx, "blocking", time.Minute))

	done := make(chan error, 1)
	go func() {
		done <- waiter.Lock(s.ctx, "blocking", time.Minute)
	}()

	time.Sleep(20 * time.Millisecond)
	s.NoError(holder.Unlock(s.ctx, "blocking"))

	select {
	case err := <-done:
		s.NoError(err)
		s.True(waiter.IsHeld("blocking"))
	case <-time.After(time.Second):
		s.Fail("waiter never acquired lock")
	}
}

func (s *LockTestSuite) TestLock_ContextCancellation() {
	holder := s.newLocker()
	_, _ = holder.TryLock(s.ctx, "cancel", time.Minute)

	ctx, cancel := context.WithTimeout(s.ctx, 50*time.Millisecond)
	defer cancel()

	err := s.newLocker(WithRetryWait(10*time.Millisecond)).Lock(ctx, "cancel", time.Minute)
	s.ErrorIs(err, context.DeadlineExceeded)
}

func (s *LockTestSuite) TestLock_MaxRetries() {
	holder := s.newLocker()
	_, _ = holder.TryLock(s.ctx, "retry", time.Minute)

	err := s.newLocker(WithRetryWait(time.Millisecond), WithMaxRetries(3)).Lock(s.ctx, "retry", time.Minute)
	s.ErrorIs(err, ErrLockNotAcquired)
	s.True(IsNotAcquired(err))
}

func (s *LockTestSuite) TestUnlock() {
	locker := s.newLocker()
	_, _ = locker.TryLock(s.ctx, "unlock", time.Minute)

	s.NoError(locker.Unlock(s.ctx, "unlock"))
	s.False(locker.IsHeld("unlock"))
	s.ErrorIs(locker.Unlock(s.ctx, "unlock"), ErrLockNotHeld)
}

func (s *LockTestSuite) TestUnlock_TakenOver() {
	a := s.newLocker()
	_, _ = a.TryLock(s.ctx, "takeover", 20*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	b := s.newLocker()
	ok, _ := b.TryLock(s.ctx, "takeover", time.Minute)
	s.Require().True(ok)

	s.ErrorIs(a.Unlock(s.ctx, "takeover"), ErrLockNotHeld)
	s.False(a.IsHeld("takeover"))
	s.True(b.IsHeld("takeover"))
}

func (s *LockTestSuite) TestExtend() {
	locker := s.newLocker()
	_, _ = locker.TryLock(s.ctx, "extend", time.Second)

	s.NoError(locker.Extend(s.ctx, "extend", time.Hour))
	ttl, err := s.cache.TTL(s.ctx, DefaultKeyPrefix+"extend")
	s.NoError(err)
	s.Greater(ttl, time.Minute)

	s.ErrorIs(locker.Extend(s.ctx, "not-held", time.Minute), ErrLockNotHeld)
}

func (s *LockTestSuite) TestExtend_Expired() {
	locker := s.newLocker()
	_, _ = locker.TryLock(s.ctx, "expired", 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	s.ErrorIs(locker.Extend(s.ctx, "expired", time.Minute), ErrLockExpired)
	s.False(locker.IsHeld("expired"))
}

func (s *LockTestSuite) TestWithLock() {
	locker := s.newLocker()
	executed := false

	err := WithLock(s.ctx, locker, "with-lock", time.Minute, func() error {
		executed = true
		s.True(locker.IsHeld("with-lock"))
		return nil
	})
	s.NoError(err)
	s.True(executed)
	s.False(locker.IsHeld("with-lock"))

	expected := errors.New("handler failed")
	err = WithLock(s.ctx, locker, "with-lock", time.Minute, func() error {
		return expected
	})
	s.ErrorIs(err, expected)
	s.False(locker.IsHeld("with-lock"))
}

func (s *LockTestSuite) TestTryWithLock() {
	holder := s.newLocker()
	_, _ = holder.TryLock(s.ctx, "occupied", time.Minute)

	executed := false
	err := TryWithLock(s.ctx, s.newLocker(), "occupied", time.Minute, func() error {
		executed = true
		return nil
	})
	s.ErrorIs(err, ErrLockNotAcquired)
	s.False(executed)

	err = TryWithLock(s.ctx, s.newLocker(), "free", time.Minute, func() error {
		executed = true
		return nil
	})
	s.NoError(err)
	s.True(executed)
}

func (s *LockTestSuite) TestWithLock_MutualExclusion() {
	locker := s.newLocker(WithRetryWait(time.Millisecond))

	var current, maxConcurrent, counter atomic.Int32
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := WithLock(s.ctx, locker, "mutex", time.Minute, func() error {
				c := current.Add(1)
				for {
					m := maxConcurrent.Load()
					if c <= m || maxConcurrent.CompareAndSwap(m, c) {
						break
					}
				}
				counter.Add(1)
				time.Sleep(time.Millisecond)
				current.Add(-1)
				return nil
			})
			s.NoError(err)
		}()
	}
	wg.Wait()

	s.Equal(int32(20), counter.Load())
	s.Equal(int32(1), maxConcurrent.Load())
}

func (s *LockTestSuite) TestOptions() {
	locker := s.newLocker(WithOwnerID("instance-a"), WithKeyPrefix("app:"))
	s.Equal("instance-a", locker.OwnerID())

	_, _ = locker.TryLock(s.ctx, "k", time.Minute)
	value, err := s.cache.Get(s.ctx, "app:k")
	s.NoError(err)
	s.Equal("instance-a", value)
}

func (s *LockTestSuite) TestPanicOnNilCache() {
	s.Panics(func() { NewRedis(nil) })
}
