// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"testing"

	"github.com/bureau-foundation/conmirror/console"
)

func TestParseCoord(t *testing.T) {
	t.Parallel()
	tests := []struct {
		input   string
		want    console.Coord
		wantErr bool
	}{
		{input: "3,4", want: console.Coord{X: 3, Y: 4}},
		{input: " 10 , 0 ", want: console.Coord{X: 10, Y: 0}},
		{input: "-1,2", want: console.Coord{X: -1, Y: 2}},
		{input: "3", wantErr: true},
		{input: "a,b", wantErr: true},
		{input: "", wantErr: true},
	}
	for _, test := range tests {
		got, err := parseCoord(test.input)
		if (err != nil) != test.wantErr {
			t.Errorf("parseCoord(%q) error = %v, wantErr %v", test.input, err, test.wantErr)
			continue
		}
		if got != test.want {
			t.Errorf("parseCoord(%q) = %s, want %s", test.input, got, test.want)
		}
	}
}

func TestParseVirtualKey(t *testing.T) {
	t.Parallel()
	tests := []struct {
		input   string
		want    uint16
		wantErr bool
	}{
		{input: "shift", want: console.VKShift},
		{input: "Ctrl", want: console.VKControl},
		{input: "alt", want: console.VKMenu},
		{input: "0x41", want: 0x41},
		{input: "13", want: console.VKReturn},
		{input: "0", wantErr: true},
		{input: "70000", wantErr: true},
		{input: "hyper", wantErr: true},
	}
	for _, test := range tests {
		got, err := parseVirtualKey(test.input)
		if (err != nil) != test.wantErr {
			t.Errorf("parseVirtualKey(%q) error = %v, wantErr %v", test.input, err, test.wantErr)
			continue
		}
		if got != test.want {
			t.Errorf("parseVirtualKey(%q) = %#x, want %#x", test.input, got, test.want)
		}
	}
}

func TestParseBits(t *testing.T) {
	t.Parallel()
	bits, err := parseBits("button", mouseButtonNames, []string{"left", " Middle"})
	if err != nil {
		t.Fatalf("parseBits: %v", err)
	}
	if bits != console.MouseLeftButton|console.MouseMiddleButton {
		t.Errorf("bits = %#x", bits)
	}
	if bits, err := parseBits("flag", mouseFlagNames, nil); err != nil || bits != 0 {
		t.Errorf("empty list = %#x, %v", bits, err)
	}
	if _, err := parseBits("flag", mouseFlagNames, []string{"triple"}); err == nil {
		t.Error("unknown flag accepted")
	}
}
