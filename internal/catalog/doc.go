// Package catalog serves the template catalog: listing, category browsing,
// search, and the optimistic save/unsave toggle with its saved-template index.
package catalog
