package audit

import (
	"time"

	"github.com/google/uuid"
)

// Action names a ledger event. Every balance mutation and status transition
// emits exactly one action so the trail reconstructs the full custody
// history of each deposit.
type Action string

const (
	ActionFundraiserCreated  Action = "fundraiser_created"
	ActionShareAssetCreated  Action = "share_asset_created"
	ActionShareAssetUpdated  Action = "share_asset_updated"
	ActionInvestorRegistered Action = "investor_registered"
	ActionInvestorClosed     Action = "investor_closed"
	ActionInvestmentCreated  Action = "investment_created"
	ActionInvestmentReleased Action = "investment_released"
	ActionInvestmentWired    Action = "investment_wired"
	ActionShareIssued        Action = "share_issued"
	ActionInvestmentRefunded Action = "investment_refunded"
	ActionDividendIssued     Action = "dividend_issued"
)

// Event is emitted from domain logic to capture key ledger actions. Keep it
// transport-agnostic so stores and sinks can fan out. Identifier fields are
// hex-encoded and empty when not applicable to the action.
type Event struct {
	ID         uuid.UUID
	Timestamp  time.Time
	Action     Action
	Actor      string
	Fundraiser string
	Investor   string
	Investment string
	Amount     uint64
	RequestID  string
	ClientIP   string
	UserAgent  string
}
