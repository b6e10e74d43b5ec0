package main

import (
	"bytes"
	"errors"
	"playoff-migration/internal/domain"
	"reflect"
	"strings"
	"testing"
)

func TestParseKinds(t *testing.T) {
	got, err := parseKinds(nil, domain.DesignKinds)
	if err != nil || !reflect.DeepEqual(got, domain.DesignKinds) {
		t.Fatalf("parseKinds(nil) = %v, %v", got, err)
	}

	got, err = parseKinds([]string{"metric-design", "player-feed-entry"}, nil)
	if err != nil {
		t.Fatalf("parseKinds returned error: %v", err)
	}
	if want := []domain.Kind{domain.KindMetricDesign, domain.KindPlayerFeed}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}

	if _, err := parseKinds([]string{"badge-design"}, nil); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestPrintReports(t *testing.T) {
	cmd := newMigrateCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)

	kinds := []domain.Kind{domain.KindTeamDesign, domain.KindMetricDesign}
	printReports(cmd, kinds, map[domain.Kind]*domain.KindReport{
		domain.KindTeamDesign: {Deleted: 1, Created: 2},
	})

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 1 || !strings.Contains(lines[0], "deleted=1 created=2") {
		t.Fatalf("unexpected output %q", out.String())
	}
}
