package sqlite_test

import (
	"context"
	"errors"
	"testing"

	"github.com/example/room-reservations/internal/persistence"
	"github.com/example/room-reservations/internal/testfixtures"
)

func TestEquipmentRepositoryLifecycle(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	item := testfixtures.NewEquipmentFixture(testfixtures.WithEquipmentID("equipment-1"))
	if err := harness.Equipment.CreateEquipment(ctx, item); err != nil {
		t.Fatalf("CreateEquipment: %v", err)
	}

	loaded, err := harness.Equipment.GetEquipment(ctx, "equipment-1")
	if err != nil {
		t.Fatalf("GetEquipment: %v", err)
	}
	if !loaded.Active {
		t.Error("new equipment should be active")
	}

	loaded.Name = "4K Projector"
	if err := harness.Equipment.UpdateEquipment(ctx, loaded); err != nil {
		t.Fatalf("UpdateEquipment: %v", err)
	}

	if err := harness.Equipment.DeactivateEquipment(ctx, "equipment-1"); err != nil {
		t.Fatalf("DeactivateEquipment: %v", err)
	}

	active, err := harness.Equipment.ListEquipment(ctx, false)
	if err != nil {
		t.Fatalf("ListEquipment: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("active list = %+v, want empty", active)
	}

	all, err := harness.Equipment.ListEquipment(ctx, true)
	if err != nil {
		t.Fatalf("ListEquipment includeInactive: %v", err)
	}
	if len(all) != 1 || all[0].Name != "4K Projector" || all[0].Active {
		t.Errorf("full list = %+v", all)
	}
}

func TestEquipmentRepositoryNotFound(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	if _, err := harness.Equipment.GetEquipment(ctx, "missing"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("missing equipment error = %v, want ErrNotFound", err)
	}
	if err := harness.Equipment.DeactivateEquipment(ctx, "missing"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("deactivate missing error = %v, want ErrNotFound", err)
	}
}
