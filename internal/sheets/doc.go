// Package sheets imports the operator directory from a Google Sheet on a
// schedule. The sheet is the source of truth; every sync replaces the
// stored directory wholesale.
package sheets
