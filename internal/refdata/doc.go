// Package refdata defines the reference-data protocol boundary.
//
// Outbound:
//   - FieldSpec / OverrideSpec: the requested scalar and bulk fields and their overrides
//   - Build: turns the catalog plus field/override specs into one Request
//
// Inbound:
//   - DecodeEvent: decodes one gateway frame into an Event
//   - Each securityData entry becomes a SecurityRecord whose Result is exactly one of
//     FieldData, SecurityError or MalformedData
//
// The gateway's element tree is only inspected here. Everything downstream works on
// the typed variants.
package refdata
