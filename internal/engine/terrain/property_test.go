package terrain

import "testing"

func TestProperty_SetReportsChange(t *testing.T) {
	p := NewProperty(PropHeightScale, float32(1))

	if p.Set(1) {
		t.Error("writing the held value should not be a change")
	}
	if !p.Set(2) {
		t.Error("writing a new value should be a change")
	}
	if p.Get() != 2 {
		t.Errorf("expected 2, got %v", p.Get())
	}
	if p.Name() != PropHeightScale {
		t.Errorf("expected name %s, got %s", PropHeightScale, p.Name())
	}
}

func TestProperty_AbsentValuesAlwaysChange(t *testing.T) {
	tex := checkerTexture()
	p := NewProperty[*Texture](PropHeightMap, nil)

	if !p.Set(nil) {
		t.Error("nil over nil should count as a change")
	}
	if !p.Set(tex) {
		t.Error("value over nil should count as a change")
	}
	if p.Set(tex) {
		t.Error("same handle should not count as a change")
	}
	if !p.Set(nil) {
		t.Error("nil over value should count as a change")
	}
}

func TestProperty_IdentityNotContent(t *testing.T) {
	a := checkerTexture()
	b := checkerTexture()
	p := NewProperty(PropHeightMap, a)

	if !p.Set(b) {
		t.Error("a different handle with equal content should count as a change")
	}
}

func TestProperty_InterfaceValues(t *testing.T) {
	u := NewUniformSet()
	p := NewProperty[ShaderBinding](PropShader, nil)

	if !p.Set(u) {
		t.Error("binding over nil should count as a change")
	}
	if p.Set(u) {
		t.Error("same binding should not count as a change")
	}

	var typedNil *UniformSet
	if !p.Set(typedNil) {
		t.Error("typed nil binding should count as a change")
	}
	if !p.Set(typedNil) {
		t.Error("typed nil is absent, so writing it again is still a change")
	}
}

func TestProperty_StructValues(t *testing.T) {
	p := NewProperty(PropTileCount, TileCount{Width: 4, Depth: 4})

	if p.Set(TileCount{Width: 4, Depth: 4}) {
		t.Error("equal struct should not count as a change")
	}
	if !p.Set(TileCount{Width: 4, Depth: 5}) {
		t.Error("different struct should count as a change")
	}
}
