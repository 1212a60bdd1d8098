// Package codec encodes and decodes fixed-width binary records with an
// explicit little-endian byte order, independent of host memory layout.
package codec
