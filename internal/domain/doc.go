// Package domain models public incident records and the rules used to match
// them against areas of interest (AOIs).
//
// # Data Source
//
// Records come from a Socrata (SODA) dataset exported as CSV, e.g. the
// Oakland CrimeWatch feed at https://data.oaklandca.gov/resource/ym6k-rx7a.csv.
// The export is requested with "$select=:*, *" so the system columns
// (":id", ":created_at", ":updated_at", ":version") are included alongside
// the dataset columns. System columns are renamed with a "soda_" prefix
// before storage; dataset columns keep their names.
//
// # Identity
//
// The feed is a rolling snapshot: the same incident appears in many pulls.
// A record's identity is the tuple of its dataset columns (see [IdentityKey]),
// not its system id or the time it was pulled. Empty cells and missing
// cells are the same value ("absent") for identity purposes.
//
// # Batches
//
// Every record written by one ingestion run carries the same accessed_at
// stamp (see [Stamp]). The newest stamp in the store identifies the latest
// batch. Stamps are fixed-width UTC strings so lexicographic order is
// chronological order:
//
//	2024-04-26T15:10:00.000000
//
// # Locations
//
// The location_1 column holds well-known text, e.g. "POINT (-122.2711 37.8044)"
// in WGS84 longitude/latitude order. See [ParseLocation].
//
// # Marker Styling
//
// Matched incidents are drawn on a static map. Each marker gets a color from
// the first [StyleRule] whose substring occurs in the incident category, and
// a 1-based sequence number that links the map marker to its table row.
package domain
