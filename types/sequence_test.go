package types

import (
	"testing"
)

func TestStep(t *testing.T) {
	var unset Step
	if unset.IsSet() {
		t.Error("zero step must be unset")
	}
	if unset.Next(1) {
		t.Error("unset step has no successor")
	}
	if unset.Format("none") != "none" {
		t.Error("unset step must render the placeholder")
	}

	zero := NewStep(0)
	if !zero.IsSet() {
		t.Error("a step holding 0 is still set")
	}
	if !zero.Next(1) || zero.Next(0) {
		t.Error("successor of 0 is 1")
	}

	top := NewStep(4294967295)
	if top.Next(0) {
		t.Error("steps do not wrap")
	}
	if !top.Next(4294967296) {
		t.Error("widened successor expected")
	}
	if v, ok := top.Value(); !ok || v != 4294967295 {
		t.Errorf("unexpected value %d", v)
	}
	if top.Format("none") != "4294967295" {
		t.Errorf("unexpected format %s", top.Format("none"))
	}
}
