package model

import "testing"

func TestLayoutStride(t *testing.T) {
	tests := []struct {
		name   string
		layout VertexLayout
		stride uint32
	}{
		{"default", DefaultLayout(), 32},
		{"position only", VertexLayout{ComponentPosition}, 12},
		{"uv only", VertexLayout{ComponentUV}, 8},
		{"padded", VertexLayout{ComponentPosition, ComponentDummyFloat, ComponentDummyVec4}, 32},
		{"full", VertexLayout{
			ComponentPosition, ComponentNormal, ComponentColor,
			ComponentUV, ComponentTangent, ComponentBitangent,
		}, 68},
		{"empty", VertexLayout{}, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.layout.Stride(); got != tc.stride {
				t.Errorf("expected stride %d, got %d", tc.stride, got)
			}
		})
	}
}
