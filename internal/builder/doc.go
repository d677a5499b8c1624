// Package builder orchestrates index builds.
//
// A build moves through a fixed pipeline: acquire the index lease, profile
// every element, plan the comparison budget, score the planned pairs,
// discover relationships, persist the index. The builder tracks its phase
// as an observable State; any failure lands in StateFailed with a reason
// and always releases the lease, including on panic. The builder then parks
// in StateFailed so status queries can surface the reason; the next build
// clears it on its first transition back to StateAcquiringLease.
//
// Two things are deliberately soft. Invalid element records are skipped
// with a warning rather than failing the build, and a deadline that lands
// during scoring cuts the comparison plan short and persists the index
// with completeness marked partial instead of erroring out.
package builder
