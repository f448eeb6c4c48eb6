// Package assoc plans and extracts entity associations.
//
// FlexiBee can return related records in the same response as the main
// record when asked through the includes and relations parameters. Plan
// turns association descriptors into those parameters (plus selection
// additions); Extract reads the related values back out of the nested
// response, following the shape each relationship kind produces.
//
// Both directions are pure: no I/O, no shared state, inputs are never
// modified.
package assoc
