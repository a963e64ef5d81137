// Package files finds raw HESA table sources in the input directory.
package files
