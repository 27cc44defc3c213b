package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeDocument counts DOM mutations so stacking bugs show up as counts > 1.
type fakeDocument struct {
	sheets  map[string]string
	badges  map[string]string
	injects int
	removes int
}

func newFakeDocument() *fakeDocument {
	return &fakeDocument{
		sheets: make(map[string]string),
		badges: make(map[string]string),
	}
}

func (d *fakeDocument) InjectStylesheet(id, css string) error {
	d.injects++
	d.sheets[id] = css
	return nil
}

func (d *fakeDocument) RemoveStylesheet(id string) error {
	d.removes++
	delete(d.sheets, id)
	return nil
}

func (d *fakeDocument) ShowBadge(id, text, _ string) error {
	d.badges[id] = text
	return nil
}

func (d *fakeDocument) RemoveBadge(id string) error {
	delete(d.badges, id)
	return nil
}

func TestPresenterSetReadOnlyIdempotent(t *testing.T) {
	ctx := context.Background()
	doc := newFakeDocument()
	presenter := NewPresenter(doc, nil, testLogger())

	require.NoError(t, presenter.SetReadOnly(ctx, true))
	require.NoError(t, presenter.SetReadOnly(ctx, true))
	require.True(t, presenter.ReadOnly())

	// Repeated enables replace rather than stack.
	require.Len(t, doc.sheets, 1)
	require.Len(t, doc.badges, 1)
	require.Equal(t, "READ-ONLY MODE", doc.badges[badgeID])

	require.NoError(t, presenter.SetReadOnly(ctx, false))
	require.NoError(t, presenter.SetReadOnly(ctx, false))
	require.False(t, presenter.ReadOnly())
	require.Empty(t, doc.sheets)
	require.Empty(t, doc.badges)
}

func TestPresenterInitWithActiveToken(t *testing.T) {
	ctx := context.Background()
	doc := newFakeDocument()

	token := sampleToken("t1", "acct")
	presenter := NewPresenter(doc, func(context.Context) (*Token, error) {
		return &token, nil
	}, testLogger())

	presenter.Init(ctx)
	require.True(t, presenter.ReadOnly())
	require.Len(t, doc.sheets, 1)
}

func TestPresenterInitWithoutActiveToken(t *testing.T) {
	ctx := context.Background()
	doc := newFakeDocument()

	presenter := NewPresenter(doc, func(context.Context) (*Token, error) {
		return nil, nil
	}, testLogger())

	presenter.Init(ctx)
	require.False(t, presenter.ReadOnly())
	require.Empty(t, doc.sheets)
}

func TestPresenterInitQueryFailure(t *testing.T) {
	ctx := context.Background()
	doc := newFakeDocument()

	presenter := NewPresenter(doc, func(context.Context) (*Token, error) {
		return nil, errors.New("agent unreachable")
	}, testLogger())

	presenter.Init(ctx)
	require.False(t, presenter.ReadOnly())
}
