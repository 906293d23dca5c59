package errors

type Code string

const (
	CodeUnknown          Code = "UNKNOWN"
	CodeInternal         Code = "INTERNAL_ERROR"
	CodeConfigValidation Code = "CONFIG_VALIDATION_ERROR"
	CodeConfigReadError  Code = "CONFIG_READ_ERROR"
	CodeConfigParseError Code = "CONFIG_PARSE_ERROR"

	CodeSourceReadError  Code = "SOURCE_READ_ERROR"
	CodeSourceParseError Code = "SOURCE_PARSE_ERROR"

	CodeNormalization      Code = "NORMALIZATION_ERROR"
	CodeAmbiguousAddress   Code = "AMBIGUOUS_ADDRESS"
	CodeClassificationRule Code = "CLASSIFICATION_RULE_ERROR"
	CodeEquivalenceRule    Code = "EQUIVALENCE_RULE_ERROR"
	CodeDiffError          Code = "DIFF_ERROR"

	CodeCollectorAPIError  Code = "COLLECTOR_API_ERROR"
	CodeCollectorAuthError Code = "COLLECTOR_AUTH_ERROR"
	CodeResourceNotFound   Code = "RESOURCE_NOT_FOUND"

	CodeReportError Code = "REPORT_ERROR"
	CodeTimeout     Code = "TIMEOUT_ERROR"
)

func (c Code) String() string {
	return string(c)
}
