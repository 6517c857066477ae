// Package climate holds the pure numeric core of the service: the absolute
// humidity formula and the window recommendation decision table.
//
// Nothing here touches the host. Callers feed validated readings in and get
// numbers or a Recommendation back.
//
// Absolute humidity uses the Magnus approximation for saturation vapour
// pressure over water:
//
//	svp = 6.112 * exp(17.67 * T / (T + 243.5))     [hPa]
//	ah  = svp * RH * 2.1674 / (273.15 + T)         [g/m³]
//
// The recommendation compares indoor and outdoor conditions in a fixed
// order. The first rule that holds wins:
//
//  1. outdoor AH > indoor AH + offset        -> "too wet"
//  2. indoor AH > warning level              -> "opening recommended"
//  3. outdoor T > indoor T + offset and
//     indoor T < comfort limit (24 °C)       -> "too warm"
//  4. otherwise                              -> "ok to open"
//
// Thresholds default to the values used across the stack (see
// DefaultThresholds) and are overridden from the climate config section.
package climate
