package model

// PanelRecord is an audited observation with the loss-ratio metric and
// derived features attached. Pointer fields are optional enrichment and stay
// nil when the inflation table is absent or a lag window has no prior year.
type PanelRecord struct {
	IssuerID       string  `csv:"issuer_id"`
	IssuerName     string  `csv:"issuer_name"`
	State          string  `csv:"state"`
	Market         string  `csv:"market"`
	Year           int     `csv:"year"`
	EarnedPremium  float64 `csv:"earned_premium"`
	IncurredClaims float64 `csv:"incurred_claims"`
	LogPremium     float64 `csv:"log_premium"`
	MCR            float64 `csv:"mcr"`

	BaselineMCR *float64 `csv:"baseline_mcr"`
	MCRDelta    *float64 `csv:"mcr_delta"`

	PremiumYoY     *float64 `csv:"premium_yoy"`
	PremiumYoYLag1 *float64 `csv:"premium_yoy_lag1"`
	PremiumYoYLag2 *float64 `csv:"premium_yoy_lag2"`

	CPIMedical       *float64 `csv:"cpi_medical"`
	CPIMedicalYoY    *float64 `csv:"cpi_medical_yoy"`
	CPIMedical3YrCum *float64 `csv:"cpi_medical_3yr_cum"`

	PPIHospitals       *float64 `csv:"ppi_hospitals"`
	PPIHospitalsYoY    *float64 `csv:"ppi_hospitals_yoy"`
	PPIHospitals3YrCum *float64 `csv:"ppi_hospitals_3yr_cum"`

	PPIPhysician       *float64 `csv:"ppi_physician"`
	PPIPhysicianYoY    *float64 `csv:"ppi_physician_yoy"`
	PPIPhysician3YrCum *float64 `csv:"ppi_physician_3yr_cum"`

	PricingGapHosp *float64 `csv:"pricing_gap_hosp"`
}

// GroupKey identifies the longitudinal issuer-state-market group.
func (r PanelRecord) GroupKey() string {
	return r.IssuerID + "|" + r.State + "|" + r.Market
}

// ModelRecord is a PanelRecord with premium-based regression weights.
type ModelRecord struct {
	PanelRecord

	PremiumWeight     float64 `csv:"premium_weight"`
	W                 float64 `csv:"w"`
	PremiumWeightYear float64 `csv:"premium_weight_year"`
	WYear             float64 `csv:"w_year"`
}

// InflationYear holds annualized macroeconomic index values for one year.
type InflationYear struct {
	Year int `csv:"year"`

	CPIMedical       *float64 `csv:"cpi_medical"`
	CPIMedicalYoY    *float64 `csv:"cpi_medical_yoy"`
	CPIMedical3YrCum *float64 `csv:"cpi_medical_3yr_cum"`

	PPIHospitals       *float64 `csv:"ppi_hospitals"`
	PPIHospitalsYoY    *float64 `csv:"ppi_hospitals_yoy"`
	PPIHospitals3YrCum *float64 `csv:"ppi_hospitals_3yr_cum"`

	PPIPhysician       *float64 `csv:"ppi_physician"`
	PPIPhysicianYoY    *float64 `csv:"ppi_physician_yoy"`
	PPIPhysician3YrCum *float64 `csv:"ppi_physician_3yr_cum"`
}

// InflationTable is a by-year lookup of inflation index values.
type InflationTable struct {
	Years []InflationYear
}

// ByYear returns the entry for the given year, or nil when absent.
func (t *InflationTable) ByYear(year int) *InflationYear {
	if t == nil {
		return nil
	}
	for i := range t.Years {
		if t.Years[i].Year == year {
			return &t.Years[i]
		}
	}
	return nil
}
