package crmsync

import (
	"context"
	"sync"

	"github.com/chefme/onboarding-cli/pkg/dataverse"
)

// call records one mutation the mock received.
type call struct {
	op        string
	entitySet string
	id        string
	body      map[string]any
}

// mockDV implements dataverse.Client for testing. Mutations are recorded so
// tests can assert on ordering and payloads.
type mockDV struct {
	mu    sync.Mutex
	calls []call

	listFn     func(ctx context.Context, entitySet string, q dataverse.Query) ([]map[string]any, error)
	getFn      func(ctx context.Context, entitySet, id string, q dataverse.Query) (map[string]any, error)
	createFn   func(ctx context.Context, entitySet string, body any) (string, error)
	updateFn   func(ctx context.Context, entitySet, id string, body any) error
	executeFn  func(ctx context.Context, action string, body any, out any) error
	downloadFn func(ctx context.Context, entitySet, id, attribute string) ([]byte, error)
	uploadFn   func(ctx context.Context, entityName, recordID, attribute string, data []byte, fileName string) error
}

func (m *mockDV) record(c call) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, c)
}

func (m *mockDV) callsFor(op string) []call {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []call
	for _, c := range m.calls {
		if c.op == op {
			out = append(out, c)
		}
	}
	return out
}

func asMap(body any) map[string]any {
	switch b := body.(type) {
	case map[string]any:
		return b
	case *Body:
		return b.fields
	default:
		return nil
	}
}

func (m *mockDV) List(ctx context.Context, entitySet string, q dataverse.Query) ([]map[string]any, error) {
	if m.listFn != nil {
		return m.listFn(ctx, entitySet, q)
	}
	return nil, nil
}

func (m *mockDV) GetRecord(ctx context.Context, entitySet, id string, q dataverse.Query) (map[string]any, error) {
	if m.getFn != nil {
		return m.getFn(ctx, entitySet, id, q)
	}
	return map[string]any{}, nil
}

func (m *mockDV) Create(ctx context.Context, entitySet string, body any) (string, error) {
	m.record(call{op: "create", entitySet: entitySet, body: asMap(body)})
	if m.createFn != nil {
		return m.createFn(ctx, entitySet, body)
	}
	return "00000000-0000-0000-0000-00000000f00d", nil
}

func (m *mockDV) Update(ctx context.Context, entitySet, id string, body any) error {
	m.record(call{op: "update", entitySet: entitySet, id: id, body: asMap(body)})
	if m.updateFn != nil {
		return m.updateFn(ctx, entitySet, id, body)
	}
	return nil
}

func (m *mockDV) Execute(ctx context.Context, action string, body any, out any) error {
	m.record(call{op: "execute", entitySet: action, body: asMap(body)})
	if m.executeFn != nil {
		return m.executeFn(ctx, action, body, out)
	}
	return nil
}

func (m *mockDV) Download(ctx context.Context, entitySet, id, attribute string) ([]byte, error) {
	if m.downloadFn != nil {
		return m.downloadFn(ctx, entitySet, id, attribute)
	}
	return nil, nil
}

func (m *mockDV) UploadFile(ctx context.Context, entityName, recordID, attribute string, data []byte, fileName string) error {
	m.record(call{op: "upload", entitySet: entityName, id: recordID, body: map[string]any{
		"attribute": attribute,
		"fileName":  fileName,
	}})
	if m.uploadFn != nil {
		return m.uploadFn(ctx, entityName, recordID, attribute, data, fileName)
	}
	return nil
}

var _ dataverse.Client = (*mockDV)(nil)
