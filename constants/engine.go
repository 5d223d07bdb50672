package constants

// Engine identifiers. Layout-ML engines are named "layoutml:<model>".
const (
	EngineTextLayer  = "pdftext"
	EngineTableLayer = "pdftable"
	EngineLattice    = "lattice"
	EngineOCR        = "ocr"
	EngineNone       = "none" // orchestrator-level failure marker

	LayoutMLPrefix = "layoutml:"
)

// BaselineEngines are always registered, in this order.
var BaselineEngines = []string{EngineTextLayer, EngineTableLayer}

// Business constants. Calibrated on real portfolios; keep the literal values.
const (
	// ClassifierFallbackConfidence is the validated confidence below which the
	// auto strategy escalates to a stronger engine.
	ClassifierFallbackConfidence = 70.0
	// ReviewConfidence is the validated confidence below which a result needs review.
	ReviewConfidence = 85.0
	// WeakSignalChars is the text length below which multi_engine escalates to OCR.
	WeakSignalChars = 100
	// ConsensusAgreement is the consensus score at or above which engines agree.
	ConsensusAgreement = 70.0

	PropertyPrimaryMinScore       = 20.0
	PropertyRecommendMinScore     = 40.0
	PropertyMediumConfidence      = 40.0
	PropertyHighConfidence        = 60.0
	PropertyReferencedRatio       = 0.5
	PropertyReferencedMaxEvidence = 2
)
