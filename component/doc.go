// Package component defines lifecycle-managed parts of an application and
// a registry that starts them in order and stops them in reverse.
package component
