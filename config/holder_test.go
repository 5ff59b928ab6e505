package config_test

import (
	"os"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/artpar/documind/config"
	"github.com/artpar/documind/domain/quota"
)

const holderConfig = `
quota:
  guest_daily: 1
  user_daily: 5
  ai_daily: 3
store:
  driver: memory
`

func TestHolder_Get(t *testing.T) {
	h, err := config.NewHolder(writeConfig(t, holderConfig), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	got := h.Get()
	if got == nil {
		t.Fatal("Get returned nil")
	}
	if got.Quota.UserDaily != 5 {
		t.Errorf("UserDaily = %d, want 5", got.Quota.UserDaily)
	}
}

func TestHolder_ReloadNotifiesListeners(t *testing.T) {
	path := writeConfig(t, holderConfig)

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	var got *config.Config
	h.OnChange(func(cfg *config.Config) { got = cfg })

	updated := `
quota:
  guest_daily: 2
  user_daily: 10
  ai_daily: 6
store:
  driver: memory
ai:
  models: [m-new]
`
	if err := os.WriteFile(path, []byte(updated), 0644); err != nil {
		t.Fatalf("write new config: %v", err)
	}
	if err := h.Reload(); err != nil {
		t.Fatalf("Reload error: %v", err)
	}

	if got == nil {
		t.Fatal("OnChange not called")
	}
	if got.Quota.UserDaily != 10 || h.Get().Quota.AIDaily != 6 {
		t.Errorf("reloaded quota = %+v", h.Get().Quota)
	}
	if h.Get().AI.Models[0] != "m-new" {
		t.Errorf("reloaded models = %v", h.Get().AI.Models)
	}
}

func TestHolder_ReloadPartialQuotaKeepsDefaults(t *testing.T) {
	path := writeConfig(t, holderConfig)

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	if err := os.WriteFile(path, []byte("quota:\n  user_daily: 8\nstore:\n  driver: memory\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := h.Reload(); err != nil {
		t.Fatalf("Reload error: %v", err)
	}

	want := quota.Limits{Guest: 1, UserGeneral: 8, UserAIChat: 3}
	if got := h.Get().Quota.Limits(); got != want {
		t.Errorf("reloaded limits = %+v, want %+v", got, want)
	}
}

func TestHolder_ReloadInvalidConfigKeepsOld(t *testing.T) {
	path := writeConfig(t, holderConfig)

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	var reloadErr error
	h.OnError(func(err error) { reloadErr = err })

	if err := os.WriteFile(path, []byte("store:\n  driver: mongo\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := h.Reload(); err == nil {
		t.Fatal("expected reload error")
	}
	if reloadErr == nil {
		t.Error("OnError not called")
	}
	if h.Get().Store.Driver != "memory" {
		t.Errorf("old config not kept: driver = %s", h.Get().Store.Driver)
	}
}

func TestHolder_WatchFile(t *testing.T) {
	path := writeConfig(t, holderConfig)

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	changed := make(chan struct{}, 8)
	h.OnChange(func(cfg *config.Config) { changed <- struct{}{} })

	if err := h.WatchFile(); err != nil {
		t.Fatalf("WatchFile error: %v", err)
	}

	updated := "quota:\n  guest_daily: 4\n  user_daily: 5\n  ai_daily: 3\nstore:\n  driver: memory\n"
	if err := os.WriteFile(path, []byte(updated), 0644); err != nil {
		t.Fatalf("write new config: %v", err)
	}

	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("file watcher did not trigger reload")
	}

	// A write can arrive as several events; wait for the final content.
	deadline := time.Now().Add(2 * time.Second)
	for h.Get().Quota.GuestDaily != 4 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := h.Get().Quota.GuestDaily; got != 4 {
		t.Errorf("after file watch, GuestDaily = %d, want 4", got)
	}
}

func TestHolder_ConcurrentAccess(t *testing.T) {
	h, err := config.NewHolder(writeConfig(t, holderConfig), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = h.Get().Quota.Limits()
		}()
		go func() {
			defer wg.Done()
			_ = h.Reload()
		}()
	}
	wg.Wait()
}

func TestHolder_StopTwice(t *testing.T) {
	h, err := config.NewHolder(writeConfig(t, holderConfig), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	h.Stop()
	h.Stop()
}

func TestStaticHolder(t *testing.T) {
	cfg, err := config.LoadWithFallback("")
	if err != nil {
		t.Fatal(err)
	}
	h := config.NewStaticHolder(cfg, zerolog.Nop())

	if err := h.Reload(); err != nil {
		t.Errorf("static Reload = %v, want nil", err)
	}
	if h.Get() != cfg {
		t.Error("static holder should return the wrapped config")
	}
	if err := h.WatchFile(); err == nil {
		t.Error("static holder has no file to watch")
	}
}

func TestReloadableFields(t *testing.T) {
	reloadable := config.ReloadableFields()
	nonReloadable := config.NonReloadableFields()

	seen := map[string]bool{}
	for _, f := range reloadable {
		seen[f] = true
	}
	for _, f := range nonReloadable {
		if seen[f] {
			t.Errorf("%s listed as both reloadable and non-reloadable", f)
		}
	}
	if !seen["quota.user_daily"] || !seen["ai.models"] {
		t.Errorf("reloadable fields = %v", reloadable)
	}
}
