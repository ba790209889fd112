package model

import (
	"fmt"
	"strings"
)

// RedemptionType identifies how points are redeemed.
type RedemptionType string

const (
	// RedemptionStatementCredit applies points against the card balance.
	RedemptionStatementCredit RedemptionType = "statementCredit"
	// RedemptionTravelPortal books travel through the issuer's portal.
	RedemptionTravelPortal RedemptionType = "travelPortal"
	// RedemptionGiftCard exchanges points for gift cards.
	RedemptionGiftCard RedemptionType = "giftCard"
	// RedemptionTransferToPartner moves points to an airline or hotel partner.
	RedemptionTransferToPartner RedemptionType = "transferToPartner"
	// RedemptionOther covers anything else.
	RedemptionOther RedemptionType = "other"
)

// RedemptionTypes lists every valid RedemptionType.
var RedemptionTypes = []RedemptionType{
	RedemptionStatementCredit,
	RedemptionTravelPortal,
	RedemptionGiftCard,
	RedemptionTransferToPartner,
	RedemptionOther,
}

// ParseRedemptionType resolves a redemption type name, ignoring case.
func ParseRedemptionType(s string) (RedemptionType, error) {
	s = strings.TrimSpace(s)
	for _, rt := range RedemptionTypes {
		if strings.EqualFold(string(rt), s) {
			return rt, nil
		}
	}
	return "", fmt.Errorf("unknown redemption type %q", s)
}

// Label returns a human readable name for the type.
func (r RedemptionType) Label() string {
	switch r {
	case RedemptionStatementCredit:
		return "Statement Credit"
	case RedemptionTravelPortal:
		return "Travel Portal"
	case RedemptionGiftCard:
		return "Gift Card"
	case RedemptionTransferToPartner:
		return "Transfer to Partner"
	default:
		return "Other"
	}
}

// RedemptionOption is one way of spending reward points.
type RedemptionOption struct {
	Restrictions   string         `json:"restrictions"`
	Type           RedemptionType `json:"type"`
	ID             int64          `json:"id"`
	PointsRequired int64          `json:"pointsRequired"`
	CashValue      float64        `json:"cashValue"`
	Fees           float64        `json:"fees"`
}

// Validate ensures the option's numeric fields are usable.
func (o *RedemptionOption) Validate() error {
	if o.PointsRequired < 0 {
		return fmt.Errorf("points required must be non-negative, got %d", o.PointsRequired)
	}
	if o.CashValue < 0 || !IsFinite(o.CashValue) {
		return fmt.Errorf("cash value must be a non-negative number, got %v", o.CashValue)
	}
	if o.Fees < 0 || !IsFinite(o.Fees) {
		return fmt.Errorf("fees must be a non-negative number, got %v", o.Fees)
	}
	if _, err := ParseRedemptionType(string(o.Type)); err != nil {
		return err
	}
	return nil
}

// DefaultProfileName names a reward profile created without one.
const DefaultProfileName = "Rewards"

// RewardProfile is a points balance with the redemptions available for it.
type RewardProfile struct {
	Name    string             `json:"name"`
	Options []RedemptionOption `json:"options"`
	ID      int64              `json:"id"`
	Balance int64              `json:"balance"`
}

// Validate ensures the profile and all of its options are usable.
func (p *RewardProfile) Validate() error {
	if p.Balance < 0 {
		return fmt.Errorf("balance must be non-negative, got %d", p.Balance)
	}
	for i := range p.Options {
		if err := p.Options[i].Validate(); err != nil {
			return fmt.Errorf("option at index %d: %w", i, err)
		}
	}
	return nil
}

// UserProfile is the display information kept for the signed-in user.
type UserProfile struct {
	Name string `json:"name"`
}
