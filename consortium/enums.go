package consortium

// =============================================================================
// CORRECTION INDEX
// =============================================================================

// IndexType selects the correction index of a quota. Wire values match the
// published index names.
type IndexType string

const (
	IndexINCC   IndexType = "INCC"    // construction cost, monthly
	IndexIPCA   IndexType = "IPCA"    // consumer prices, monthly
	IndexCDI    IndexType = "CDI"     // interbank savings rate
	IndexINCC12 IndexType = "INCC_12" // construction cost, 12-month accumulated
	IndexIPCA12 IndexType = "IPCA_12" // consumer prices, 12-month accumulated
)

// IndexTypes lists every supported index.
var IndexTypes = []IndexType{IndexINCC, IndexIPCA, IndexCDI, IndexINCC12, IndexIPCA12}

func (t IndexType) Valid() bool {
	switch t {
	case IndexINCC, IndexIPCA, IndexCDI, IndexINCC12, IndexIPCA12:
		return true
	}
	return false
}

// =============================================================================
// PAYMENT PLAN
// =============================================================================

// PaymentPlan selects how monthly rates are allocated.
type PaymentPlan string

const (
	PlanNormal     PaymentPlan = "NORMAL"    // remaining / months left
	PlanReduced    PaymentPlan = "REDUZIDA"  // half FC until contemplation or mid-term
	PlanSemiAnnual PaymentPlan = "SEMESTRAL" // half rates, balloon every 6th month
)

func (p PaymentPlan) Valid() bool {
	switch p {
	case PlanNormal, PlanReduced, PlanSemiAnnual:
		return true
	}
	return false
}

// =============================================================================
// BID BASE
// =============================================================================

// BidBase selects what the "% of lance" is computed against.
type BidBase string

const (
	BidBaseCredit       BidBase = "CREDITO" // credit value only
	BidBaseTotalProject BidBase = "TOTAL"   // credit value plus TA and FR
)

func (b BidBase) Valid() bool {
	switch b {
	case BidBaseCredit, BidBaseTotalProject:
		return true
	}
	return false
}

// =============================================================================
// PRODUCT TYPE
// =============================================================================

type ProductType string

const (
	ProductVehicle    ProductType = "VEICULO"
	ProductRealEstate ProductType = "IMOVEL"
)

func (p ProductType) Valid() bool {
	return p == ProductVehicle || p == ProductRealEstate
}
