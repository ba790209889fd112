package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/Veraticus/spendwise/internal/model"
)

func TestValidateContext(t *testing.T) {
	tests := []struct {
		ctx     context.Context
		name    string
		wantErr bool
	}{
		{
			name:    "valid context",
			ctx:     context.Background(),
			wantErr: false,
		},
		{
			name:    "nil context",
			ctx:     nil,
			wantErr: true,
		},
		{
			name: "canceled context still valid",
			ctx: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			}(),
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateContext(tt.ctx)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateContext() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateString(t *testing.T) {
	tests := []struct {
		name    string
		str     string
		wantErr bool
	}{
		{name: "valid string", str: "test"},
		{name: "empty string", str: "", wantErr: true},
		{name: "whitespace only", str: "   ", wantErr: true},
		{name: "string with spaces", str: "  test  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateString(tt.str, "param")
			if (err != nil) != tt.wantErr {
				t.Errorf("validateString() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrEmptyString) {
				t.Errorf("validateString() error should wrap ErrEmptyString, got %v", err)
			}
		})
	}
}

func TestValidateOption(t *testing.T) {
	tests := []struct {
		option  *model.RedemptionOption
		name    string
		wantErr bool
	}{
		{name: "valid", option: &model.RedemptionOption{Type: model.RedemptionGiftCard, PointsRequired: 1000, CashValue: 10}},
		{name: "nil", option: nil, wantErr: true},
		{name: "negative fees", option: &model.RedemptionOption{Type: model.RedemptionOther, Fees: -1}, wantErr: true},
		{name: "unknown type", option: &model.RedemptionOption{Type: "cashback"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateOption(tt.option)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateOption() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateID(t *testing.T) {
	if err := validateID(1, "id"); err != nil {
		t.Errorf("validateID(1) error = %v", err)
	}
	for _, id := range []int64{0, -5} {
		if err := validateID(id, "id"); !errors.Is(err, ErrInvalidID) {
			t.Errorf("validateID(%d) error = %v, want ErrInvalidID", id, err)
		}
	}
}
