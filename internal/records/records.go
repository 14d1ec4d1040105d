// Package records defines the canonical, source-independent record
// types the ingestion run produces. Records are immutable value
// objects: the per-source normalizers are the only constructors and
// nothing mutates a record after it has been built.
package records

import "time"

// Kind identifies a canonical record type and doubles as its table
// name in the store.
type Kind string

const (
	KindPaymentOrder    Kind = "scanview_payments"
	KindParkingLog      Kind = "scanview_logs"
	KindSolvisionOrder  Kind = "solvision_orders"
	KindGiantleapOrder  Kind = "giantleap_orders"
	KindParkParkParking Kind = "parkpark_parkings"
	KindParkOneParking  Kind = "parkone_parkings"
	KindEasyParkParking Kind = "easypark_parkings"
	KindRunLog          Kind = "run_logs"
)

// Batch is a uniformly handled group of same-kind records, the unit
// the orchestrator hands to the store.
type Batch interface {
	Kind() Kind
	Len() int
}

// PaymentOrder is one order row from the Scanview admin panel.
// Natural key: (Date, LicensePlate, StartDate, LocationID).
type PaymentOrder struct {
	Date          time.Time
	LicensePlate  string
	StartDate     time.Time
	LocationID    int64
	EndDate       *time.Time
	Customer      string
	Name          string
	Status        string
	PaymentMethod string
	Price         float64
	AutoRenew     bool
}

// ParkingLog is one parking log row from the Scanview admin panel.
// Natural key: (AreaID, CreatedDateUTC, LicensePlate).
type ParkingLog struct {
	AreaID          int64
	CreatedDateUTC  time.Time
	LicensePlate    string
	EndDateUTC      *time.Time
	PaymentStartUTC *time.Time
	PaymentEndUTC   *time.Time
	HandledByType   string
	AreaName        string
	Price           float64
}

// SolvisionOrder is one meter transaction from the Solvision portal.
// Natural key: (LocationID, PaymentTime, LicensePlate).
type SolvisionOrder struct {
	LocationID   int64
	PaymentTime  time.Time
	LicensePlate string
	Start        *time.Time
	End          *time.Time
	RateType     string
	DiscountCode *string
	DiscountType *string
	CardFirm     string
	CardCount    int64
	Price        float64
	Fee          float64
	ParkingTime  string
}

// GiantleapOrder is one payment transaction from the Giantleap report.
// Natural key: (PaymentTransaction).
type GiantleapOrder struct {
	PaymentTransaction string
	ReportTime         *time.Time
	Payer              string
	Zone               string
	PaymentMethod      string
	Amount             float64
	VAT                float64
}

// ParkParkParking is one parking entry from the ParkPark report api.
// Natural key: (ParkingID).
type ParkParkParking struct {
	ParkingID    int64
	CheckinAt    *time.Time
	CheckoutAt   *time.Time
	Minutes      int64
	Amount       float64
	Zone         string
	LicensePlate string
}

// ParkOneParking is one parking from the ParkOne api.
// Natural key: (ParkOneParkingID).
type ParkOneParking struct {
	ParkOneParkingID int64
	StartTime        *time.Time
	StopAt           *time.Time
	VehicleRegID     string
	Municipality     string
	Zone             string
}

// EasyParkParking is one row of the EasyPark operator export.
// Natural key: (ParkingID).
type EasyParkParking struct {
	ParkingID      int64
	StartDate      *time.Time
	EndDate        *time.Time
	Area           string
	AreaNumber     string
	LicensePlate   string
	CountryCode    string
	ParkingFee     float64
	TransactionFee float64
	TotalAmount    float64
	Stopped        bool
}

// RunLog summarizes one orchestration run. Append-only: one row per
// run, never updated.
type RunLog struct {
	RunTime          time.Time
	DateRangeFrom    time.Time
	DateRangeTo      time.Time
	ScanviewPayments int
	ScanviewLogs     int
	SolvisionOrders  int
	GiantleapOrders  int
	ParkParkEntries  int
	ParkOneEntries   int
	EasyParkEntries  int
	Status           string
	Message          string
	RuntimeSeconds   float64
}

type PaymentOrders []PaymentOrder

func (PaymentOrders) Kind() Kind { return KindPaymentOrder }
func (b PaymentOrders) Len() int { return len(b) }

type ParkingLogs []ParkingLog

func (ParkingLogs) Kind() Kind { return KindParkingLog }
func (b ParkingLogs) Len() int { return len(b) }

type SolvisionOrders []SolvisionOrder

func (SolvisionOrders) Kind() Kind { return KindSolvisionOrder }
func (b SolvisionOrders) Len() int { return len(b) }

type GiantleapOrders []GiantleapOrder

func (GiantleapOrders) Kind() Kind { return KindGiantleapOrder }
func (b GiantleapOrders) Len() int { return len(b) }

type ParkParkParkings []ParkParkParking

func (ParkParkParkings) Kind() Kind { return KindParkParkParking }
func (b ParkParkParkings) Len() int { return len(b) }

type ParkOneParkings []ParkOneParking

func (ParkOneParkings) Kind() Kind { return KindParkOneParking }
func (b ParkOneParkings) Len() int { return len(b) }

type EasyParkParkings []EasyParkParking

func (EasyParkParkings) Kind() Kind { return KindEasyParkParking }
func (b EasyParkParkings) Len() int { return len(b) }
