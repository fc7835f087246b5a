package testkit

import (
	"context"
	"fmt"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/shashiranjanraj/storefront/pkg/mail"
)

// Built-in step methods.
const (
	MethodHTTP = "httprequest"
	MethodMail = "sendmail"
)

// ─── FuncMocker ───────────────────────────────────────────────────────────────

// FuncMocker stands in for a non-HTTP side effect. The runner arms it with
// the scenario's step before the request; the code under test then calls it
// through whatever interface the mocker implements.
type FuncMocker interface {
	// Arm loads the outcome for the next scenario.
	Arm(step MockStep) error

	// Reset clears the armed step and call history.
	Reset()

	// WasCalled returns how many calls were made since the last Reset.
	WasCalled() int

	// Mock exposes the testify mock for call inspection.
	Mock() *mock.Mock
}

// ─── MailMocker ───────────────────────────────────────────────────────────────

// MailMocker is a mail.Mailer backed by testify/mock. Pass Mailer() to the
// services under test; scenarios drive it with "sendmail" steps. A step
// statusCode >= 400 makes Send fail.
type MailMocker struct {
	mu    sync.Mutex
	m     mock.Mock
	armed *MockStep
	sent  []mail.Message
}

// NewMailMocker returns an unarmed MailMocker. Unarmed sends succeed.
func NewMailMocker() *MailMocker {
	mm := &MailMocker{}
	mm.m.On("Send", mock.Anything).Return(nil)
	return mm
}

// Send implements mail.Mailer.
func (mm *MailMocker) Send(_ context.Context, msg mail.Message) error {
	mm.mu.Lock()
	mm.sent = append(mm.sent, msg)
	step := mm.armed
	mm.mu.Unlock()

	mm.m.Called(msg)
	if step != nil && step.ReturnData.StatusCode >= 400 {
		return fmt.Errorf("testkit: sendmail mocked failure (%d)", step.ReturnData.StatusCode)
	}
	return nil
}

// Sent returns every message passed to Send since the last Reset.
func (mm *MailMocker) Sent() []mail.Message {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	return append([]mail.Message(nil), mm.sent...)
}

func (mm *MailMocker) Arm(step MockStep) error {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	mm.armed = &step
	return nil
}

func (mm *MailMocker) Reset() {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	mm.armed = nil
	mm.sent = nil
	mm.m.Calls = nil
}

func (mm *MailMocker) WasCalled() int {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	return len(mm.sent)
}

func (mm *MailMocker) Mock() *mock.Mock { return &mm.m }

// ─── Registry ─────────────────────────────────────────────────────────────────

var (
	mockerMu       sync.RWMutex
	mockerRegistry = map[string]FuncMocker{}
)

// RegisterMocker binds a FuncMocker to a step method name.
//
//	mailer := testkit.NewMailMocker()
//	testkit.RegisterMocker(testkit.MethodMail, mailer)
func RegisterMocker(method string, m FuncMocker) {
	mockerMu.Lock()
	defer mockerMu.Unlock()
	mockerRegistry[method] = m
}

// GetMocker returns the mocker bound to method, or nil.
func GetMocker(method string) FuncMocker {
	mockerMu.RLock()
	defer mockerMu.RUnlock()
	return mockerRegistry[method]
}

func resetAllMockers() {
	mockerMu.RLock()
	defer mockerMu.RUnlock()
	for _, m := range mockerRegistry {
		m.Reset()
	}
}

// ─── Scenario activation ──────────────────────────────────────────────────────

// ArmFuncMocks arms the mocker of every non-HTTP step in s.
func ArmFuncMocks(s *Scenario) error {
	for i, step := range s.NetUtilMockStep {
		if step.Method == MethodHTTP {
			continue
		}
		m := GetMocker(step.Method)
		if m == nil {
			if s.IsMockRequired {
				return fmt.Errorf("testkit: no mocker registered for %q (step %d)", step.Method, i)
			}
			continue
		}
		if err := m.Arm(step); err != nil {
			return fmt.Errorf("testkit: step %d: %w", i, err)
		}
	}
	return nil
}

// AssertFuncMocksCalled returns one error per isMock=true non-HTTP step whose
// mocker saw no calls.
func AssertFuncMocksCalled(s *Scenario) []error {
	var errs []error
	seen := map[string]bool{}
	for _, step := range s.NetUtilMockStep {
		if step.Method == MethodHTTP || !step.IsMock || seen[step.Method] {
			continue
		}
		seen[step.Method] = true
		if m := GetMocker(step.Method); m != nil && m.WasCalled() == 0 {
			errs = append(errs, fmt.Errorf("testkit: mock %q was never called", step.Method))
		}
	}
	return errs
}
