// Package permit holds the process-wide configuration shared by the permit
// packages. Values come from defaults, permit.yaml and PERMIT__ environment
// variables, in that order.
package permit
