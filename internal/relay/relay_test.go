package relay

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/stageloader/internal/events"
	"github.com/specialistvlad/stageloader/internal/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPayload_SaveGameCarriesPath(t *testing.T) {
	got := Payload("COEFExample", events.Record{
		Kind:   events.KindSaveGame,
		Sender: "OBSE",
		Data:   []byte("Saves/autosave.ess\x00"),
	})
	want := map[string]any{
		"plugin":     "COEFExample",
		"type":       uint32(4),
		"kind":       "save-game",
		"recognized": true,
		"sender":     "OBSE",
		"len":        19,
		"file_path":  "Saves/autosave.ess",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Payload() mismatch (-want +got):\n%s", diff)
	}
}

func TestPayload_UnrecognizedKind(t *testing.T) {
	got := Payload("COEFExample", events.Record{Kind: 77, Sender: "Other"})
	assert.Equal(t, "Kind(77)", got["kind"])
	assert.Equal(t, false, got["recognized"])
	assert.NotContains(t, got, "file_path")
}

func TestConnect_InvalidURL(t *testing.T) {
	ctx, _ := testutil.Context(t)
	_, err := Connect(ctx, Config{URL: "://bad"}, "COEFExample")
	assert.ErrorContains(t, err, "failed to parse relay URL")
}

func TestConnect_CancelledContext(t *testing.T) {
	ctx, _ := testutil.Context(t)
	ctx, cancel := context.WithCancel(ctx)
	cancel()

	_, err := Connect(ctx, Config{URL: "http://127.0.0.1:1/", ConnectTimeout: time.Second}, "COEFExample")
	assert.Error(t, err)
}

func TestClose_NilRelay(t *testing.T) {
	var r *Relay
	assert.NotPanics(t, r.Close)
}
