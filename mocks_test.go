package gateway_test

import (
	"context"
	"fmt"
	"sync"

	gateway "github.com/goliatone/go-gateway"
)

// captureLogger records formatted log lines per level.
type captureLogger struct {
	mu     sync.Mutex
	debugs []string
	infos  []string
	warns  []string
	errors []string
}

func (l *captureLogger) Debug(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.debugs = append(l.debugs, fmt.Sprintf(format, args...))
}

func (l *captureLogger) Info(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infos = append(l.infos, fmt.Sprintf(format, args...))
}

func (l *captureLogger) Warn(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, fmt.Sprintf(format, args...))
}

func (l *captureLogger) Error(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, fmt.Sprintf(format, args...))
}

func (l *captureLogger) errorLines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.errors...)
}

// stubProvider is a scriptable AuthProvider.
type stubProvider struct {
	name     string
	loggedIn bool
	admin    bool

	logInErr  error
	verifyErr error

	logInCalls  int
	verifyCalls int
	signOuts    int
}

func (p *stubProvider) Name() string               { return p.name }
func (p *stubProvider) Token() string              { return "" }
func (p *stubProvider) IsLoggedIn() bool           { return p.loggedIn }
func (p *stubProvider) IsAdmin() bool              { return p.admin }
func (p *stubProvider) UserInfo() gateway.UserInfo { return gateway.UserInfo{} }

func (p *stubProvider) LogIn(ctx context.Context, username, password string) error {
	p.logInCalls++
	if p.logInErr != nil {
		return p.logInErr
	}
	p.loggedIn = true
	return nil
}

func (p *stubProvider) VerifyLogIn(ctx context.Context) error {
	p.verifyCalls++
	return p.verifyErr
}

func (p *stubProvider) SignOut() {
	p.signOuts++
	p.loggedIn = false
}

// refreshStubProvider adds a scriptable Refresh capability.
type refreshStubProvider struct {
	stubProvider
	refreshErr   error
	refreshCalls int
}

func (p *refreshStubProvider) Refresh(ctx context.Context) error {
	p.refreshCalls++
	return p.refreshErr
}

// fakeNavigator records pushes and reports a scripted current path.
type fakeNavigator struct {
	path   string
	pushes []navPush
}

type navPush struct {
	path  string
	state map[string]any
}

func (n *fakeNavigator) Push(path string, state map[string]any) {
	n.pushes = append(n.pushes, navPush{path: path, state: state})
	n.path = path
}

func (n *fakeNavigator) Path() string { return n.path }

// fakeToasts records surfaced notifications.
type fakeToasts struct {
	errors   []string
	warnings []string
}

func (t *fakeToasts) Error(title, message string)   { t.errors = append(t.errors, message) }
func (t *fakeToasts) Warning(title, message string) { t.warnings = append(t.warnings, message) }

// fakeTracker records analytics calls.
type fakeTracker struct {
	initIDs []string
	initErr error
	pages   []string
}

func (t *fakeTracker) Init(id string) error {
	t.initIDs = append(t.initIDs, id)
	return t.initErr
}

func (t *fakeTracker) PageView(page string) { t.pages = append(t.pages, page) }

// recorded collects every action type dispatched through a store.
type recorder struct {
	mu    sync.Mutex
	types []string
}

func (r *recorder) middleware() gateway.Middleware {
	return func(s *gateway.Store, next func(gateway.Action), a gateway.Action) {
		r.mu.Lock()
		r.types = append(r.types, a.Type)
		r.mu.Unlock()
		next(a)
	}
}

func (r *recorder) seen(actionType string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.types {
		if t == actionType {
			return true
		}
	}
	return false
}

func (r *recorder) count(actionType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, t := range r.types {
		if t == actionType {
			n++
		}
	}
	return n
}
