package services

import (
	"context"
	"errors"
	"testing"

	"github.com/luftkuhl/ninethree-backend/internal/platform/nhtsa"
	"github.com/luftkuhl/ninethree-backend/internal/types"
)

type fakeVINs struct {
	info   *nhtsa.VehicleInfo
	err    error
	gotVIN string
}

func (f *fakeVINs) DecodeVIN(_ context.Context, vin string) (*nhtsa.VehicleInfo, error) {
	f.gotVIN = vin
	return f.info, f.err
}

func TestProfileLoadMissing(t *testing.T) {
	svc := NewProfileService(testLogger(t), newMemBlob(), &fakeVINs{})

	profile, err := svc.Load(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if profile != nil {
		t.Fatalf("want nil profile got=%+v", profile)
	}
}

func TestProfileSaveAndLoad(t *testing.T) {
	svc := NewProfileService(testLogger(t), newMemBlob(), &fakeVINs{})
	ctx := context.Background()

	in := &types.CarProfile{Year: "1996", Model: "Carrera 4S", Transmission: "Manual", Mileage: "88,000"}
	if _, err := svc.Save(ctx, "jsmith", in); err != nil {
		t.Fatalf("save: %v", err)
	}

	out, err := svc.Load(ctx, "jsmith")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if out == nil || out.Model != "Carrera 4S" || out.Mileage != "88,000" {
		t.Fatalf("roundtrip lost fields: %+v", out)
	}
}

func TestProfileSaveVINFill(t *testing.T) {
	vins := &fakeVINs{info: &nhtsa.VehicleInfo{Year: "1997", Make: "Porsche", Model: "911"}}
	svc := NewProfileService(testLogger(t), newMemBlob(), vins)

	in := &types.CarProfile{VIN: "wp0ca2997vs340000"}
	out, err := svc.Save(context.Background(), "u", in)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if vins.gotVIN != "WP0CA2997VS340000" {
		t.Fatalf("VIN not uppercased before decode: %q", vins.gotVIN)
	}
	if out.Year != "1997" || out.Model != "911" {
		t.Fatalf("decoded fields not filled: %+v", out)
	}
}

func TestProfileSaveVINDoesNotOverwrite(t *testing.T) {
	vins := &fakeVINs{info: &nhtsa.VehicleInfo{Year: "1997", Model: "911"}}
	svc := NewProfileService(testLogger(t), newMemBlob(), vins)

	in := &types.CarProfile{VIN: "WP0CA2997VS340000", Year: "1996", Model: ""}
	out, err := svc.Save(context.Background(), "u", in)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if out.Year != "1996" {
		t.Fatalf("user-entered year overwritten: %q", out.Year)
	}
	if out.Model != "911" {
		t.Fatalf("blank model should be filled: %q", out.Model)
	}
}

func TestProfileSaveIncomplete(t *testing.T) {
	vins := &fakeVINs{}
	svc := NewProfileService(testLogger(t), newMemBlob(), vins)

	if _, err := svc.Save(context.Background(), "u", &types.CarProfile{Year: "1996"}); err == nil {
		t.Fatalf("profile without model should be rejected")
	}
	if vins.gotVIN != "" {
		t.Fatalf("short VIN should not be decoded")
	}
}

func TestProfileSaveVINDecodeFailure(t *testing.T) {
	vins := &fakeVINs{err: errTest}
	svc := NewProfileService(testLogger(t), newMemBlob(), vins)

	// The vPIC error itself is swallowed; the save fails only because the
	// profile is still missing its model.
	in := &types.CarProfile{VIN: "WP0CA2997VS340000", Year: "1996"}
	_, err := svc.Save(context.Background(), "u", in)
	if err == nil {
		t.Fatalf("incomplete profile should be rejected")
	}
	if errors.Is(err, errTest) {
		t.Fatalf("vPIC error must not propagate: %v", err)
	}
}
