// Package pdf extracts ordered page text from PDF files.
package pdf
