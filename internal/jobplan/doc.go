// Package jobplan turns scan results and resolution mappings into AME job
// descriptors, and imports explicit job lists from YAML files.
//
// Build decides per original whether a proxy job is needed and, when it is
// not, records why. Output paths mirror the original's relative directory
// under the proxy root.
package jobplan
