package refdata

import "github.com/rickgao/refdata-normalizer/internal/model"

// OperationReferenceData is the request operation name on the service.
const OperationReferenceData = "ReferenceDataRequest"

// Request is one outbound reference-data request.
type Request struct {
	Securities []string   `json:"securities"`
	Fields     []string   `json:"fields"`
	Overrides  []Override `json:"overrides,omitempty"`
}

// Build constructs the request for securities, fields and overrides.
//
// Every security name becomes a target, in catalog order. Scalar then bulk field
// names are appended as given; repeated names are kept. Overrides are attached
// only when supplied. An empty catalog yields a request with zero targets.
func Build(securities []model.Security, fields FieldSpec, overrides OverrideSpec) Request {
	req := Request{
		Securities: make([]string, 0, len(securities)),
		Fields:     make([]string, 0, len(fields.Scalar)+len(fields.Bulk)),
	}

	for _, s := range securities {
		req.Securities = append(req.Securities, s.Name)
	}

	req.Fields = append(req.Fields, fields.Scalar...)
	req.Fields = append(req.Fields, fields.Bulk...)

	if len(overrides) > 0 {
		req.Overrides = make([]Override, len(overrides))
		copy(req.Overrides, overrides)
	}

	return req
}
