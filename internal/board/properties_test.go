package board

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func TestFQBN_Matches(t *testing.T) {
	tests := []struct {
		name   string
		fqbn   FQBN
		prefix string
		want   bool
	}{
		{"teensy 4.1", "teensy:avr:teensy41", "teensy:avr", true},
		{"teensy with options", "teensy:avr:teensy40:usb=serial", "teensy:avr", true},
		{"other vendor", "arduino:avr:uno", "teensy:avr", false},
		{"empty fqbn", "", "teensy:avr", false},
		{"empty prefix", "teensy:avr:teensy41", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fqbn.Matches(tt.prefix); got != tt.want {
				t.Errorf("FQBN(%q).Matches(%q) = %v, want %v", tt.fqbn, tt.prefix, got, tt.want)
			}
		})
	}
}

func TestFQBN_Segments(t *testing.T) {
	f := FQBN("teensy:avr:teensy41")
	if f.Vendor() != "teensy" {
		t.Errorf("Vendor() = %q, want teensy", f.Vendor())
	}
	if f.Architecture() != "avr" {
		t.Errorf("Architecture() = %q, want avr", f.Architecture())
	}
	if FQBN("teensy").Architecture() != "" {
		t.Error("Architecture() of a bare vendor should be empty")
	}
}

func TestDetails_MatchesNil(t *testing.T) {
	var d *Details
	if d.Matches("teensy:avr") {
		t.Error("nil details should never match")
	}
}

func TestBuildProperties_UnmarshalJSONKeepsOrder(t *testing.T) {
	data := `{
		"runtime.tools.teensy-tools.path": "/tools/b",
		"build.board": "TEENSY41",
		"runtime.tools.teensy-tools-1.60.0.path": "/tools/a",
		"runtime.tools.missing": null
	}`

	var props BuildProperties
	if err := json.Unmarshal([]byte(data), &props); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	wantKeys := []string{
		"runtime.tools.teensy-tools.path",
		"build.board",
		"runtime.tools.teensy-tools-1.60.0.path",
		"runtime.tools.missing",
	}
	got := props.Keys()
	if strings.Join(got, ",") != strings.Join(wantKeys, ",") {
		t.Errorf("Keys() = %v, want %v", got, wantKeys)
	}

	if props[3].Present {
		t.Error("null value should not be present")
	}
	if v, ok := props.Get("build.board"); !ok || v != "TEENSY41" {
		t.Errorf("Get(build.board) = %q, %v", v, ok)
	}
	if _, ok := props.Get("runtime.tools.missing"); ok {
		t.Error("Get() should not return a null property")
	}
}

func TestBuildProperties_UnmarshalJSONErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"array", `["a","b"]`},
		{"truncated", `{"a": "b"`},
		{"unterminated value", `{"a": [1, 2}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var props BuildProperties
			if err := json.Unmarshal([]byte(tt.data), &props); err == nil {
				t.Errorf("Unmarshal(%s) expected error", tt.data)
			}
		})
	}
}

func TestBuildProperties_UnmarshalJSONNonStringValues(t *testing.T) {
	in := `{"build.flags.count": 3, "build.extra": {"x": "y"}, "build.list": ["a"], "build.ok": true, "runtime.tools.teensy-tools.path": "/tools"}`

	var props BuildProperties
	if err := json.Unmarshal([]byte(in), &props); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	want := []string{"build.flags.count", "build.extra", "build.list", "build.ok", "runtime.tools.teensy-tools.path"}
	if got := props.Keys(); !reflect.DeepEqual(got, want) {
		t.Errorf("Keys() = %v, want %v", got, want)
	}
	for _, key := range want[:4] {
		if v, ok := props.Get(key); ok {
			t.Errorf("Get(%s) = %q, want absent", key, v)
		}
	}
	if v, ok := props.Get("runtime.tools.teensy-tools.path"); !ok || v != "/tools" {
		t.Errorf("Get(runtime.tools.teensy-tools.path) = %q, %v", v, ok)
	}
}

func TestDetails_JSONRoundTripOrder(t *testing.T) {
	in := `{"fqbn":"teensy:avr:teensy41","buildProperties":{"z":"1","a":null,"m":"3"}}`

	var d Details
	if err := json.Unmarshal([]byte(in), &d); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	out, err := json.Marshal(&d)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(out) != in {
		t.Errorf("Marshal() = %s, want %s", out, in)
	}
}

func TestParseProperties(t *testing.T) {
	input := `# generated by arduino-cli
build.board=TEENSY41

runtime.tools.teensy-tools.path=/home/u/.arduino15/packages/teensy/tools/teensy-tools/1.60.0
recipe.hooks.postbuild.1.pattern="{teensytools.path}teensy_post_compile" -file=x
`
	props, err := ParseProperties(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseProperties() error = %v", err)
	}
	if len(props) != 3 {
		t.Fatalf("ParseProperties() returned %d properties, want 3", len(props))
	}
	if props[1].Key != "runtime.tools.teensy-tools.path" {
		t.Errorf("second key = %q", props[1].Key)
	}
	v, _ := props.Get("recipe.hooks.postbuild.1.pattern")
	if v != `"{teensytools.path}teensy_post_compile" -file=x` {
		t.Errorf("value with '=' was split: %q", v)
	}
}

func TestParseProperties_LiteralValues(t *testing.T) {
	input := `runtime.tools.teensy-tools.path=C:\Users\u\AppData\Local\Arduino15\packages\teensy\tools\teensy-tools\1.60.0
build.fqbn = teensy:avr:teensy41
recipe.size.pattern="{compiler.path}{build.toolchain}{build.command.size}" -A "${build.path}/x.elf"
build.extra_flags=
tools.teensy.upload.params.quiet=\
`
	props, err := ParseProperties(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseProperties() error = %v", err)
	}

	tests := []struct {
		key  string
		want string
	}{
		{"runtime.tools.teensy-tools.path", `C:\Users\u\AppData\Local\Arduino15\packages\teensy\tools\teensy-tools\1.60.0`},
		{"build.fqbn", "teensy:avr:teensy41"},
		{"recipe.size.pattern", `"{compiler.path}{build.toolchain}{build.command.size}" -A "${build.path}/x.elf"`},
		{"build.extra_flags", ""},
		{"tools.teensy.upload.params.quiet", `\`},
	}
	for _, tt := range tests {
		got, ok := props.Get(tt.key)
		if !ok || got != tt.want {
			t.Errorf("Get(%s) = %q, %v, want %q", tt.key, got, ok, tt.want)
		}
	}
	if len(props) != len(tests) {
		t.Errorf("ParseProperties() returned %d properties, want %d", len(props), len(tests))
	}
}

func TestParseProperties_RejectsGarbage(t *testing.T) {
	if _, err := ParseProperties(strings.NewReader("not a property\n")); err == nil {
		t.Error("ParseProperties() expected error for line without '='")
	}
	if _, err := ParseProperties(strings.NewReader("=value\n")); err == nil {
		t.Error("ParseProperties() expected error for empty key")
	}
}

func TestBuildProperties_Set(t *testing.T) {
	props := BuildProperties{{Key: "a", Present: false}}
	props.Set("a", "1")
	props.Set("b", "2")

	if v, ok := props.Get("a"); !ok || v != "1" {
		t.Errorf("Get(a) = %q, %v", v, ok)
	}
	if len(props) != 2 || props[1].Key != "b" {
		t.Errorf("Set() should append new keys in order, got %v", props.Keys())
	}
}
