package plugin

import (
	"context"
	"errors"
	"testing"
)

type fakePlugin struct {
	name     string
	options  map[string]string
	initErr  error
	inited   bool
	reads    int
	stopped  bool
	stopErr  error
	dataSets []DataSet
}

func (f *fakePlugin) Name() string { return f.name }

func (f *fakePlugin) SetOption(key, value string) error {
	if f.options == nil {
		f.options = make(map[string]string)
	}
	f.options[key] = value
	return nil
}

func (f *fakePlugin) Init(ctx context.Context, host *HostContext) error {
	if f.initErr != nil {
		return f.initErr
	}
	f.inited = true
	return nil
}

func (f *fakePlugin) Read(ctx context.Context) error {
	f.reads++
	return nil
}

func (f *fakePlugin) Shutdown(ctx context.Context) error {
	if f.stopErr != nil {
		return f.stopErr
	}
	f.stopped = true
	return nil
}

func (f *fakePlugin) DataSets() []DataSet { return f.dataSets }

func TestRegistry_RegisterDuplicate(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&fakePlugin{name: "jsonrpc"}); err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	if err := r.Register(&fakePlugin{name: "jsonrpc"}); err == nil {
		t.Error("expected duplicate registration to fail")
	}
}

func TestRegistry_DuplicateDataSet(t *testing.T) {
	r := NewRegistry()
	ds := []DataSet{{Type: "temperature", Sources: []DataSource{{Name: "value"}}}}
	if err := r.Register(&fakePlugin{name: "a", dataSets: ds}); err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	if err := r.Register(&fakePlugin{name: "b", dataSets: ds}); err == nil {
		t.Error("expected duplicate data set type to fail")
	}
}

func TestRegistry_Configure(t *testing.T) {
	r := NewRegistry()
	p := &fakePlugin{name: "sensors"}
	r.MustRegister(p)

	if err := r.Configure("sensors", "Host", "127.0.0.1"); err != nil {
		t.Fatalf("Configure() error: %v", err)
	}
	if p.options["Host"] != "127.0.0.1" {
		t.Errorf("option not routed, got %v", p.options)
	}
	if s, _ := r.State("sensors"); s != StateConfigured {
		t.Errorf("state = %v, want configured", s)
	}

	if err := r.Configure("missing", "k", "v"); err == nil {
		t.Error("expected unknown plugin to fail")
	}
}

func TestRegistry_LifecycleFailureIsolation(t *testing.T) {
	r := NewRegistry()
	bad := &fakePlugin{name: "bad", initErr: errors.New("boom")}
	good := &fakePlugin{name: "good"}
	r.MustRegister(bad)
	r.MustRegister(good)

	err := r.InitAll(context.Background(), &HostContext{})
	if err == nil {
		t.Fatal("expected InitAll to report the failing plugin")
	}
	if !good.inited {
		t.Error("good plugin should still have been initialized")
	}
	if s, _ := r.State("bad"); s != StateFailed {
		t.Errorf("bad state = %v, want failed", s)
	}

	// failed plugins are skipped on read ticks
	if err := r.ReadAll(context.Background()); err != nil {
		t.Fatalf("ReadAll() error: %v", err)
	}
	if good.reads != 1 {
		t.Errorf("good reads = %d, want 1", good.reads)
	}

	if err := r.ShutdownAll(context.Background()); err != nil {
		t.Fatalf("ShutdownAll() error: %v", err)
	}
	if !good.stopped {
		t.Error("good plugin should have been shut down")
	}
}

func TestValueList_Identifier(t *testing.T) {
	tests := []struct {
		vl   ValueList
		want string
	}{
		{
			ValueList{Host: "host1", Plugin: "cpu", Type: "cpu", TypeInstance: "user"},
			"host1/cpu/cpu-user",
		},
		{
			ValueList{Host: "host1", Plugin: "sensors", PluginInstance: "0", Type: "temperature"},
			"host1/sensors-0/temperature",
		},
	}

	for _, tt := range tests {
		if got := tt.vl.Identifier(); got != tt.want {
			t.Errorf("Identifier() = %q, want %q", got, tt.want)
		}
	}
}

func TestRegistry_DataSetLookup(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(&fakePlugin{name: "sensors", dataSets: []DataSet{
		{Type: "fanspeed", Sources: []DataSource{{Name: "value", Min: 0}}},
	}})

	if _, ok := r.DataSet("fanspeed"); !ok {
		t.Error("fanspeed data set should be registered")
	}
	if _, ok := r.DataSet("voltage"); ok {
		t.Error("voltage data set should not be registered")
	}
}
