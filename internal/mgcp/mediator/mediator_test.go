package mediator

import (
	"testing"
	"time"

	"github.com/sebas/mgcpgw/internal/mgcp/bus"
	"github.com/sebas/mgcpgw/internal/mgcp/command"
	"github.com/sebas/mgcpgw/internal/mgcp/endpoint"
	"github.com/sebas/mgcpgw/internal/mgcp/message"
)

type fakeCommand struct {
	calls int
	code  int
}

func (f *fakeCommand) Execute() (*command.Result, error) {
	f.calls++
	return &command.Result{Code: f.code}, nil
}
func (f *fakeCommand) Rollback(tid, code int, msg string) (*command.Result, error) {
	return &command.Result{TransactionID: tid, Code: code, Message: msg}, nil
}
func (f *fakeCommand) Reset() {}

func newTestMediator(cmd *fakeCommand) (*Mediator, *endpoint.Manager) {
	eps := endpoint.NewManager("example.com")
	eps.Register(message.EndpointID{LocalName: "aaln/1", Domain: "example.com"})

	provider := command.NewProvider(map[message.Verb]command.Factory{
		message.RQNT: func(req *message.Request) command.Command { return cmd },
	})

	b := bus.New()
	return New(eps, provider, b, 16, time.Minute), eps
}

func TestHandleDispatchesRegisteredCommand(t *testing.T) {
	cmd := &fakeCommand{code: 200}
	m, _ := newTestMediator(cmd)

	req := &message.Request{
		Verb:          message.RQNT,
		TransactionID: 1,
		EndpointID:    message.EndpointID{LocalName: "aaln/1", Domain: "example.com"},
	}

	resp := m.Handle(req)
	if resp.Code != 200 {
		t.Fatalf("got code %d, want 200", resp.Code)
	}
	if cmd.calls != 1 {
		t.Errorf("command executed %d times, want 1", cmd.calls)
	}
}

func TestHandleReturnsEndpointUnknownForMissingEndpoint(t *testing.T) {
	cmd := &fakeCommand{code: 200}
	m, _ := newTestMediator(cmd)

	req := &message.Request{
		Verb:          message.RQNT,
		TransactionID: 2,
		EndpointID:    message.EndpointID{LocalName: "aaln/nope", Domain: "example.com"},
	}

	resp := m.Handle(req)
	if resp.Code != 500 {
		t.Fatalf("got code %d, want 500 (endpoint unknown)", resp.Code)
	}
	if cmd.calls != 0 {
		t.Errorf("command should not run when endpoint resolution fails, got %d calls", cmd.calls)
	}
}

func TestHandleReplaysResponseForDuplicateTransaction(t *testing.T) {
	cmd := &fakeCommand{code: 200}
	m, _ := newTestMediator(cmd)

	req := &message.Request{
		Verb:          message.RQNT,
		TransactionID: 3,
		EndpointID:    message.EndpointID{LocalName: "aaln/1", Domain: "example.com"},
	}

	first := m.Handle(req)
	second := m.Handle(req)

	if cmd.calls != 1 {
		t.Errorf("command executed %d times across duplicate requests, want 1", cmd.calls)
	}
	if second != first {
		t.Error("duplicate transaction did not replay the exact original response")
	}
}

// blockingCommand blocks Execute until release is closed, letting the
// test observe the mediator's behavior while a transaction is still
// open.
type blockingCommand struct {
	release chan struct{}
	calls   int
}

func (f *blockingCommand) Execute() (*command.Result, error) {
	f.calls++
	<-f.release
	return &command.Result{Code: 200}, nil
}
func (f *blockingCommand) Rollback(tid, code int, msg string) (*command.Result, error) {
	return &command.Result{TransactionID: tid, Code: code, Message: msg}, nil
}
func (f *blockingCommand) Reset() {}

func TestHandleDropsDuplicateOfInFlightTransaction(t *testing.T) {
	cmd := &blockingCommand{release: make(chan struct{})}
	eps := endpoint.NewManager("example.com")
	eps.Register(message.EndpointID{LocalName: "aaln/1", Domain: "example.com"})
	provider := command.NewProvider(map[message.Verb]command.Factory{
		message.RQNT: func(req *message.Request) command.Command { return cmd },
	})
	m := New(eps, provider, bus.New(), 16, time.Minute)

	req := &message.Request{
		Verb:          message.RQNT,
		TransactionID: 5,
		EndpointID:    message.EndpointID{LocalName: "aaln/1", Domain: "example.com"},
	}

	firstDone := make(chan *message.Response, 1)
	go func() { firstDone <- m.Handle(req) }()

	// Give the first Handle call a chance to register the transaction
	// as open before the duplicate arrives.
	time.Sleep(20 * time.Millisecond)

	dup := m.Handle(req)
	if dup != nil {
		t.Fatalf("expected nil (dropped) for duplicate of in-flight transaction, got %+v", dup)
	}

	close(cmd.release)
	first := <-firstDone
	if first.Code != 200 {
		t.Fatalf("got code %d, want 200", first.Code)
	}
	if cmd.calls != 1 {
		t.Errorf("command executed %d times, want 1 (duplicate must not re-dispatch)", cmd.calls)
	}
}

func TestHandleTimesOutStuckCommand(t *testing.T) {
	cmd := &blockingCommand{release: make(chan struct{})}
	defer close(cmd.release)
	eps := endpoint.NewManager("example.com")
	eps.Register(message.EndpointID{LocalName: "aaln/1", Domain: "example.com"})
	provider := command.NewProvider(map[message.Verb]command.Factory{
		message.RQNT: func(req *message.Request) command.Command { return cmd },
	})
	m := New(eps, provider, bus.New(), 16, 10*time.Millisecond)

	req := &message.Request{
		Verb:          message.RQNT,
		TransactionID: 6,
		EndpointID:    message.EndpointID{LocalName: "aaln/1", Domain: "example.com"},
	}

	resp := m.Handle(req)
	if resp.Code != 406 {
		t.Fatalf("got code %d, want 406 (transaction timeout)", resp.Code)
	}
}

func TestHandleReturnsUnknownExtensionForUnregisteredVerb(t *testing.T) {
	cmd := &fakeCommand{code: 200}
	m, _ := newTestMediator(cmd)

	req := &message.Request{
		Verb:          message.AUCX,
		TransactionID: 4,
		EndpointID:    message.EndpointID{LocalName: "aaln/1", Domain: "example.com"},
	}

	resp := m.Handle(req)
	if resp.Code != 518 {
		t.Fatalf("got code %d, want 518 (unknown extension)", resp.Code)
	}
}
