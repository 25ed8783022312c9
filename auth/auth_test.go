package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/mjuauth/autherr"
	"github.com/jmcleod/mjuauth/cache"
	"github.com/jmcleod/mjuauth/internal/mocks"
	"github.com/jmcleod/mjuauth/result"
	"github.com/jmcleod/mjuauth/service"
	"github.com/jmcleod/mjuauth/sso"
	"github.com/jmcleod/mjuauth/student"
	"github.com/jmcleod/mjuauth/transport"
)

func newSession(t *testing.T) *transport.Session {
	t.Helper()
	sess, err := transport.NewSession()
	require.NoError(t, err)
	sess.MarkAuthenticated(service.MSI)
	return sess
}

func newCreds(t *testing.T, userID, password string) *Credentials {
	t.Helper()
	c, err := NewCredentials(userID, password)
	require.NoError(t, err)
	t.Cleanup(c.Destroy)
	return c
}

func newOrchestrator(t *testing.T) (*Orchestrator, *mocks.MockAuthenticator) {
	t.Helper()
	ctrl := gomock.NewController(t)
	m := mocks.NewMockAuthenticator(ctrl)
	return New(m, cache.NewSessionCache(0), cache.NewDataCache(0)), m
}

func TestNewCredentials(t *testing.T) {
	_, err := NewCredentials("", "pw")
	assert.ErrorIs(t, err, ErrEmptyUserID)
	_, err = NewCredentials("60123456", "")
	assert.ErrorIs(t, err, ErrEmptyPassword)

	c, err := NewCredentials("60123456", "secret")
	require.NoError(t, err)
	assert.Equal(t, "60123456", c.UserID())
	assert.Equal(t, cache.HashPassword("secret"), c.PasswordHash())

	sc, err := c.sso()
	require.NoError(t, err)
	assert.Equal(t, sso.Credentials{UserID: "60123456", Password: "secret"}, sc)

	c.Destroy()
	_, err = c.sso()
	assert.ErrorIs(t, err, ErrDestroyed)
	c.Destroy()
}

func TestGetValidSessionCachesLogin(t *testing.T) {
	o, m := newOrchestrator(t)
	creds := newCreds(t, "60123456", "pw")
	sess := newSession(t)

	m.EXPECT().
		Login(gomock.Any(), sso.Credentials{UserID: "60123456", Password: "pw"}, service.MSI).
		Return(sess, nil).
		Times(1)

	got, err := o.GetValidSession(context.Background(), creds)
	require.NoError(t, err)
	assert.Same(t, sess, got)

	got, err = o.GetValidSession(context.Background(), creds)
	require.NoError(t, err)
	assert.Same(t, sess, got)
}

func TestGetValidSessionPasswordChange(t *testing.T) {
	o, m := newOrchestrator(t)
	first, second := newSession(t), newSession(t)

	gomock.InOrder(
		m.EXPECT().Login(gomock.Any(), gomock.Any(), service.MSI).Return(first, nil),
		m.EXPECT().Login(gomock.Any(), gomock.Any(), service.MSI).Return(second, nil),
	)

	got, err := o.GetValidSession(context.Background(), newCreds(t, "u", "old"))
	require.NoError(t, err)
	assert.Same(t, first, got)

	got, err = o.GetValidSession(context.Background(), newCreds(t, "u", "new"))
	require.NoError(t, err)
	assert.Same(t, second, got)
}

func TestGetValidSessionRejectedClearsData(t *testing.T) {
	o, m := newOrchestrator(t)
	creds := newCreds(t, "u", "pw")
	o.data.Set("u", DataStudentCard, "card", creds.PasswordHash())

	rejected := autherr.InvalidCredentials("ID 또는 비밀번호가 일치하지 않습니다.", service.MSI)
	m.EXPECT().Login(gomock.Any(), gomock.Any(), service.MSI).Return(nil, rejected)

	_, err := o.GetValidSession(context.Background(), creds)
	require.ErrorIs(t, err, rejected)
	_, ok := o.data.Get("u", DataStudentCard)
	assert.False(t, ok)
	assert.Zero(t, o.sessions.Len())
}

func TestGetValidSessionNetworkFailureKeepsData(t *testing.T) {
	o, m := newOrchestrator(t)
	creds := newCreds(t, "u", "pw")
	o.data.Set("u", DataStudentCard, "card", creds.PasswordHash())

	m.EXPECT().Login(gomock.Any(), gomock.Any(), service.MSI).
		Return(nil, autherr.Network("connection refused", "https://sso.mju.ac.kr", 0, nil))

	_, err := o.GetValidSession(context.Background(), creds)
	assert.True(t, autherr.IsKind(err, autherr.KindNetwork))
	_, ok := o.data.Get("u", DataStudentCard)
	assert.True(t, ok)
}

func TestGetValidSessionSerializesPerUser(t *testing.T) {
	o, m := newOrchestrator(t)
	sess := newSession(t)

	var inFlight, peak int32
	m.EXPECT().Login(gomock.Any(), gomock.Any(), service.MSI).
		DoAndReturn(func(context.Context, sso.Credentials, string) (*transport.Session, error) {
			n := atomic.AddInt32(&inFlight, 1)
			if n > atomic.LoadInt32(&peak) {
				atomic.StoreInt32(&peak, n)
			}
			time.Sleep(20 * time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
			return sess, nil
		}).
		Times(1)

	creds := newCreds(t, "u", "pw")
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := o.GetValidSession(context.Background(), creds)
			assert.NoError(t, err)
			assert.Same(t, sess, got)
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, atomic.LoadInt32(&peak))
}

func TestGetValidSessionUsersIndependent(t *testing.T) {
	o, m := newOrchestrator(t)
	release := make(chan struct{})
	slowStarted := make(chan struct{})
	slowSess, fastSess := newSession(t), newSession(t)
	slow, fast := newCreds(t, "slow", "pw"), newCreds(t, "fast", "pw")

	m.EXPECT().Login(gomock.Any(), gomock.Any(), service.MSI).
		DoAndReturn(func(_ context.Context, c sso.Credentials, _ string) (*transport.Session, error) {
			if c.UserID == "slow" {
				close(slowStarted)
				<-release
				return slowSess, nil
			}
			return fastSess, nil
		}).
		Times(2)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := o.GetValidSession(context.Background(), slow)
		assert.NoError(t, err)
	}()
	<-slowStarted

	_, err := o.GetValidSession(context.Background(), fast)
	require.NoError(t, err, "another user's pending login must not block")

	close(release)
	<-done
}

func TestFetchWithRetry(t *testing.T) {
	t.Run("RetriesOnce", func(t *testing.T) {
		o, m := newOrchestrator(t)
		first, second := newSession(t), newSession(t)
		gomock.InOrder(
			m.EXPECT().Login(gomock.Any(), gomock.Any(), service.MSI).Return(first, nil),
			m.EXPECT().Login(gomock.Any(), gomock.Any(), service.MSI).Return(second, nil),
		)

		var calls int
		v, err := FetchWithRetry(context.Background(), o, newCreds(t, "u", "pw"),
			func(_ context.Context, s *transport.Session) (string, error) {
				calls++
				if s == first {
					return "", autherr.SessionExpired("portal session expired", "https://sso.mju.ac.kr")
				}
				return "ok", nil
			})
		require.NoError(t, err)
		assert.Equal(t, "ok", v)
		assert.Equal(t, 2, calls)

		cached, ok := o.sessions.Lookup("u", cache.HashPassword("pw"))
		require.True(t, ok)
		assert.Same(t, second, cached)
	})

	t.Run("FailFastOnInvalidCredentials", func(t *testing.T) {
		o, m := newOrchestrator(t)
		m.EXPECT().Login(gomock.Any(), gomock.Any(), service.MSI).Return(newSession(t), nil).Times(1)

		var calls int
		_, err := FetchWithRetry(context.Background(), o, newCreds(t, "u", "pw"),
			func(context.Context, *transport.Session) (int, error) {
				calls++
				return 0, autherr.InvalidCredentials("second password check failed", service.MSI)
			})
		assert.True(t, autherr.IsKind(err, autherr.KindInvalidCredentials))
		assert.Equal(t, 1, calls)
	})

	t.Run("SecondErrorVerbatim", func(t *testing.T) {
		o, m := newOrchestrator(t)
		m.EXPECT().Login(gomock.Any(), gomock.Any(), service.MSI).Return(newSession(t), nil).Times(2)

		second := autherr.Parsing("student id missing", "student_id")
		var calls int
		_, err := FetchWithRetry(context.Background(), o, newCreds(t, "u", "pw"),
			func(context.Context, *transport.Session) (int, error) {
				calls++
				if calls == 1 {
					return 0, errors.New("boom")
				}
				return 0, second
			})
		assert.Same(t, second, err)
		assert.Equal(t, 2, calls)
	})

	t.Run("ReloginFailurePropagates", func(t *testing.T) {
		o, m := newOrchestrator(t)
		rejected := autherr.InvalidCredentials("password changed", service.MSI)
		gomock.InOrder(
			m.EXPECT().Login(gomock.Any(), gomock.Any(), service.MSI).Return(newSession(t), nil),
			m.EXPECT().Login(gomock.Any(), gomock.Any(), service.MSI).Return(nil, rejected),
		)

		_, err := FetchWithRetry(context.Background(), o, newCreds(t, "u", "pw"),
			func(context.Context, *transport.Session) (int, error) {
				return 0, autherr.SessionExpired("expired", "")
			})
		assert.ErrorIs(t, err, rejected)
	})
}

func TestFetchCachesData(t *testing.T) {
	o, m := newOrchestrator(t)
	m.EXPECT().Login(gomock.Any(), gomock.Any(), service.MSI).Return(newSession(t), nil).Times(1)
	creds := newCreds(t, "u", "pw")

	var calls int32
	op := func(context.Context, *transport.Session) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "record", nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := Fetch(context.Background(), o, creds, "kind", op)
			assert.Equal(t, result.Authenticated, r.Outcome)
			assert.Equal(t, "record", r.Data)
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestFetchRejected(t *testing.T) {
	o, m := newOrchestrator(t)
	m.EXPECT().Login(gomock.Any(), gomock.Any(), service.MSI).
		Return(nil, autherr.InvalidCredentials("ID 또는 비밀번호가 일치하지 않습니다.", service.MSI))

	r := Fetch(context.Background(), o, newCreds(t, "u", "bad"), "kind",
		func(context.Context, *transport.Session) (string, error) {
			t.Fatal("op must not run without a session")
			return "", nil
		})
	assert.Equal(t, result.Rejected, r.Outcome)
	assert.Equal(t, autherr.KindInvalidCredentials, r.Kind)
	assert.Equal(t, "ID 또는 비밀번호가 일치하지 않습니다.", r.Message)
	require.NotNil(t, r.CredentialsValid())
	assert.False(t, *r.CredentialsValid())
}

func TestLogin(t *testing.T) {
	o, m := newOrchestrator(t)
	msi, lms := newSession(t), newSession(t)
	m.EXPECT().Login(gomock.Any(), gomock.Any(), service.LMS).Return(lms, nil)
	m.EXPECT().Login(gomock.Any(), gomock.Any(), service.MSI).Return(msi, nil)
	creds := newCreds(t, "u", "pw")

	r := o.Login(context.Background(), creds, service.LMS)
	assert.Equal(t, result.Authenticated, r.Outcome)
	assert.Same(t, lms, r.Data)
	assert.Zero(t, o.sessions.Len(), "only the orchestrator's service is cached")

	r = o.Login(context.Background(), creds, service.MSI)
	assert.True(t, r.Success())
	cached, ok := o.sessions.Lookup("u", creds.PasswordHash())
	require.True(t, ok)
	assert.Same(t, msi, cached)
}

func TestLoginUnknownService(t *testing.T) {
	o, m := newOrchestrator(t)
	m.EXPECT().Login(gomock.Any(), gomock.Any(), "nope").
		Return(nil, autherr.ServiceNotFound("nope", []string{service.MSI}))

	r := o.Login(context.Background(), newCreds(t, "u", "pw"), "nope")
	assert.Equal(t, result.Failed, r.Outcome)
	assert.Equal(t, autherr.KindServiceNotFound, r.Kind)
	assert.Nil(t, r.CredentialsValid())
}

func TestIsSessionValid(t *testing.T) {
	o, m := newOrchestrator(t)
	assert.False(t, o.IsSessionValid(context.Background(), "u", service.MSI))

	sess := newSession(t)
	o.sessions.Set("u", sess, cache.HashPassword("pw"))
	m.EXPECT().IsSessionValid(gomock.Any(), sess, service.MSI).Return(true)
	assert.True(t, o.IsSessionValid(context.Background(), "u", service.MSI))
}

func TestIsSessionValidWaitsForLogin(t *testing.T) {
	o, m := newOrchestrator(t)
	sess := newSession(t)
	o.sessions.Set("u", sess, cache.HashPassword("pw"))
	m.EXPECT().IsSessionValid(gomock.Any(), sess, service.MSI).Return(true)

	lock := o.sessions.LockFor("u")
	lock.Lock()
	done := make(chan bool)
	go func() { done <- o.IsSessionValid(context.Background(), "u", service.MSI) }()

	select {
	case <-done:
		t.Fatal("IsSessionValid ran while the session lock was held")
	case <-time.After(50 * time.Millisecond):
	}
	lock.Unlock()
	assert.True(t, <-done)
}

func TestCheckSession(t *testing.T) {
	o, m := newOrchestrator(t)

	r := o.CheckSession(context.Background(), newCreds(t, "u", "pw"), service.MSI)
	assert.Equal(t, result.Succeeded, r.Outcome)
	assert.True(t, r.RequestSucceeded())
	assert.Nil(t, r.CredentialsValid())
	assert.Equal(t, &SessionStatus{Service: service.MSI}, r.Data)

	sess := newSession(t)
	o.sessions.Set("u", sess, cache.HashPassword("pw"))
	m.EXPECT().IsSessionValid(gomock.Any(), sess, service.LMS).Return(false)
	r = o.CheckSession(context.Background(), newCreds(t, "u", "pw"), service.LMS)
	assert.Equal(t, result.Succeeded, r.Outcome)
	assert.Equal(t, &SessionStatus{Service: service.LMS, Cached: true, Valid: false}, r.Data)

	// A wrong password does not reach the cached session.
	r = o.CheckSession(context.Background(), newCreds(t, "u", "other"), service.MSI)
	assert.False(t, r.Data.Cached)
}

func TestGetStudentChangelog(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<meta name="_csrf" content="tok">
<div class="flex-table-item"><div class="item-title">학번</div><div class="item-data">60123456</div></div>
<div class="flex-table-item"><div class="item-title">이수학기</div><div class="item-data">5</div></div>`)
	}))
	t.Cleanup(srv.Close)

	ctrl := gomock.NewController(t)
	m := mocks.NewMockAuthenticator(ctrl)
	m.EXPECT().Login(gomock.Any(), gomock.Any(), service.MSI).Return(newSession(t), nil)

	f := student.NewFetcher(service.MSIEndpoints{Home: srv.URL, StudentCard: srv.URL, ChangeLog: srv.URL})
	o := New(m, cache.NewSessionCache(0), cache.NewDataCache(0), WithFetcher(f))

	r := o.GetStudentChangelog(context.Background(), newCreds(t, "60123456", "pw"))
	require.True(t, r.Success(), r.Message)
	assert.Equal(t, "60123456", r.Data.StudentID)
	assert.Equal(t, "5", r.Data.CompletedSemesters)

	card := o.GetStudentCard(context.Background(), newCreds(t, "60123456", "pw"))
	require.True(t, card.Success(), card.Message)
	assert.Equal(t, "60123456", card.Data.Profile.StudentID)

	_, ok := o.data.Get("60123456", DataStudentChangeLog)
	assert.True(t, ok)
	_, ok = o.data.Get("60123456", DataStudentCard)
	assert.True(t, ok)
}

func TestGetStudentBasicInfo(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, `<div class="main-user-info">
<div class="info-cell"><div class="title">소 속 :</div><div class="value">컴퓨터공학과</div></div>
<div class="info-cell"><div class="title">최근접속IP :</div><div class="value">203.0.113.7</div></div>
</div>`)
	}))
	t.Cleanup(srv.Close)

	ctrl := gomock.NewController(t)
	m := mocks.NewMockAuthenticator(ctrl)
	m.EXPECT().Login(gomock.Any(), gomock.Any(), service.MSI).Return(newSession(t), nil).Times(1)

	f := student.NewFetcher(service.MSIEndpoints{Home: srv.URL})
	o := New(m, cache.NewSessionCache(0), cache.NewDataCache(0), WithFetcher(f))
	creds := newCreds(t, "60123456", "pw")

	for i := 0; i < 2; i++ {
		r := o.GetStudentBasicInfo(context.Background(), creds)
		require.True(t, r.Success(), r.Message)
		assert.Equal(t, result.Authenticated, r.Outcome)
		assert.Equal(t, "컴퓨터공학과", r.Data.Department)
		assert.Equal(t, "203.0.113.7", r.Data.LastAccessIP)
	}
	assert.Equal(t, int32(1), hits.Load(), "second call is served from the data cache")

	_, ok := o.data.Get("60123456", DataStudentBasicInfo)
	assert.True(t, ok)
}

func TestDestroyedCredentials(t *testing.T) {
	o, _ := newOrchestrator(t)
	creds, err := NewCredentials("u", "pw")
	require.NoError(t, err)
	creds.Destroy()

	r := o.GetStudentCard(context.Background(), creds)
	assert.Equal(t, result.Failed, r.Outcome)
}
