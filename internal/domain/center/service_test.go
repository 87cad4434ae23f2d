package center

import (
	"context"
	"testing"
	"time"
)

type mockRepo struct {
	centers map[int64]*Center
	nextID  int64
}

func newMockRepo() *mockRepo {
	return &mockRepo{centers: make(map[int64]*Center), nextID: 1}
}

func (m *mockRepo) Create(_ context.Context, c *Center) error {
	c.ID = m.nextID
	c.CreatedAt = time.Now()
	m.nextID++
	cp := *c
	m.centers[c.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id int64) (*Center, error) {
	c, ok := m.centers[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *mockRepo) Update(_ context.Context, c *Center) error {
	if _, ok := m.centers[c.ID]; !ok {
		return ErrNotFound
	}
	cp := *c
	m.centers[c.ID] = &cp
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.centers[id]; !ok {
		return ErrNotFound
	}
	delete(m.centers, id)
	return nil
}

func (m *mockRepo) List(_ context.Context) ([]*Center, error) {
	var out []*Center
	for _, c := range m.centers {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func TestCreateRequiresName(t *testing.T) {
	svc := NewService(newMockRepo())
	if err := svc.Create(context.Background(), &Center{Name: "   "}); err == nil {
		t.Error("expected error for blank name")
	}
	c := &Center{Name: "  Lagos General  ", Location: "Lagos"}
	if err := svc.Create(context.Background(), c); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.Name != "Lagos General" {
		t.Errorf("name not trimmed: %q", c.Name)
	}
	if c.ID == 0 {
		t.Error("expected assigned id")
	}
}

func TestUpdateAndDelete(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	ctx := context.Background()

	c := &Center{Name: "Abuja Teaching Hospital"}
	if err := svc.Create(ctx, c); err != nil {
		t.Fatalf("Create: %v", err)
	}

	c.Location = "Abuja"
	if err := svc.Update(ctx, c); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, err := svc.Get(ctx, c.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Location != "Abuja" {
		t.Errorf("location = %q, want Abuja", got.Location)
	}

	if err := svc.Delete(ctx, c.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(ctx, c.ID); err != ErrNotFound {
		t.Errorf("Get after delete = %v, want ErrNotFound", err)
	}
	if err := svc.Delete(ctx, c.ID); err != ErrNotFound {
		t.Errorf("Delete missing = %v, want ErrNotFound", err)
	}
}
