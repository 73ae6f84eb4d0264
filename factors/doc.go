// Package factors implements the closed-form message-passing rules used by
// the SEM backend. The only stochastic node with non-trivial rules is the
// sigmoid (logistic-link) factor, which couples a continuous Gaussian
// latent to a binary outcome through a Jaakkola–Jordan local variational
// bound with auxiliary parameter zeta.
//
// This is deliberately not a general factor-graph engine: the SEM model is
// fixed, so the rules are exposed as plain functions over small value
// types (Gaussian, Bernoulli) and composed directly by package sem.
package factors
