package validator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/specloom/loom/internal/ir"
)

// Security and policy checks: roles, audit policies, data policies, and
// external service declarations.

var (
	entityOperations = []string{"read", "create", "update", "delete", "list"}
	auditOperations  = []string{"create", "update", "delete", "read"}

	maskingStrategies = []string{"partial", "full", "hash", "redact"}
	retentionPeriodRe = regexp.MustCompile(`(?i)^\d+\s*(year|years|month|months|day|days|week|weeks)$`)

	serviceAuthTypes   = []string{"none", "bearer", "basic", "api_key", "oauth2"}
	serviceHTTPMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE"}
	serviceTypes       = []string{"rest", "graphql", "grpc", "soap"}
	serviceURLRe       = regexp.MustCompile(`(?i)^https?://[^\s/$.?#].[^\s]*$`)
)

// checkRoles detects inheritance cycles (SEC-001) and validates entity
// permissions (SEC-002). Only the first cycle found is reported.
func checkRoles(ctx *docContext) []Error {
	doc := ctx.doc
	var errs []Error

	// DFS with a recursion stack; unresolved parents are skipped here since
	// the reference pass already reports them.
	var detect func(role string, visited, stack map[string]bool) []string
	detect = func(role string, visited, stack map[string]bool) []string {
		visited[role] = true
		stack[role] = true
		for _, parent := range doc.Roles[role].Inherits {
			if _, ok := doc.Roles[parent]; !ok {
				continue
			}
			if !visited[parent] {
				if cycle := detect(parent, visited, stack); cycle != nil {
					return append([]string{role}, cycle...)
				}
			} else if stack[parent] {
				return []string{role, parent}
			}
		}
		delete(stack, role)
		return nil
	}

	visited := map[string]bool{}
	for _, roleName := range ir.SortedKeys(doc.Roles) {
		if visited[roleName] {
			continue
		}
		if cycle := detect(roleName, visited, map[string]bool{}); cycle != nil {
			errs = append(errs, Error{
				Path:     "roles",
				Message:  "Circular role inheritance detected: " + strings.Join(cycle, " -> "),
				Severity: SeverityError,
				Code:     CodeRoleCycle,
				Category: CategorySecurity,
			})
			break
		}
	}

	for _, roleName := range ir.SortedKeys(doc.Roles) {
		role := doc.Roles[roleName]
		for i, ep := range role.EntityPermissions {
			if ep.Entity != "" && !ctx.hasEntity(ep.Entity) {
				errs = append(errs, Error{
					Path:     fmt.Sprintf("roles.%s.entityPermissions[%d]", roleName, i),
					Message:  fmt.Sprintf("Entity permission references unknown entity '%s'", ep.Entity),
					Severity: SeverityError,
					Code:     CodeRoleBadGrant,
					Category: CategorySecurity,
					Actual:   ep.Entity,
				})
			}
			for _, op := range ep.Operations {
				if !contains(entityOperations, op) {
					errs = append(errs, Error{
						Path:         fmt.Sprintf("roles.%s.entityPermissions[%d].operations", roleName, i),
						Message:      fmt.Sprintf("Invalid operation '%s'. Valid: %s", op, strings.Join(entityOperations, ", ")),
						Severity:     SeverityError,
						Code:         CodeRoleBadGrant,
						Category:     CategorySecurity,
						Actual:       op,
						ValidOptions: entityOperations,
					})
				}
			}
		}
	}

	return errs
}

// checkPolicies validates audit and data policies against the entities
// they govern.
func checkPolicies(ctx *docContext) []Error {
	doc := ctx.doc
	var errs []Error

	for _, name := range ir.SortedKeys(doc.AuditPolicies) {
		policy := doc.AuditPolicies[name]
		base := "auditPolicies." + name

		if policy.Entity != "" && ctx.hasEntity(policy.Entity) {
			for _, field := range policy.Fields {
				if field == "all" {
					continue
				}
				if _, ok := ctx.entityField(policy.Entity, field); !ok {
					errs = append(errs, Error{
						Path:         base + ".fields",
						Message:      fmt.Sprintf("Audit policy references unknown field '%s' in entity '%s'", field, policy.Entity),
						Severity:     SeverityError,
						Code:         CodePolicyBadField,
						Category:     CategoryPolicy,
						Actual:       field,
						ValidOptions: ctx.fieldNames(policy.Entity),
					})
				}
			}
		}

		for _, op := range policy.Operations {
			if !contains(auditOperations, op) {
				errs = append(errs, Error{
					Path:         base + ".operations",
					Message:      fmt.Sprintf("Invalid audit operation '%s'. Valid: %s", op, strings.Join(auditOperations, ", ")),
					Severity:     SeverityError,
					Code:         CodePolicyBadOperation,
					Category:     CategoryPolicy,
					Actual:       op,
					ValidOptions: auditOperations,
				})
			}
		}
	}

	for _, name := range ir.SortedKeys(doc.DataPolicies) {
		policy := doc.DataPolicies[name]
		base := "dataPolicies." + name

		if policy.Entity != "" && ctx.hasEntity(policy.Entity) {
			for _, field := range policy.PIIFields {
				if _, ok := ctx.entityField(policy.Entity, field); !ok {
					errs = append(errs, Error{
						Path:         base + ".piiFields",
						Message:      fmt.Sprintf("PII field '%s' not found in entity '%s'", field, policy.Entity),
						Severity:     SeverityError,
						Code:         CodePolicyBadField,
						Category:     CategoryPolicy,
						Actual:       field,
						ValidOptions: ctx.fieldNames(policy.Entity),
					})
				}
			}

			if policy.Masking != nil {
				for _, field := range policy.Masking.Fields {
					if _, ok := ctx.entityField(policy.Entity, field); !ok {
						errs = append(errs, Error{
							Path:         base + ".masking.fields",
							Message:      fmt.Sprintf("Masking field '%s' not found in entity '%s'", field, policy.Entity),
							Severity:     SeverityError,
							Code:         CodePolicyBadField,
							Category:     CategoryPolicy,
							Actual:       field,
							ValidOptions: ctx.fieldNames(policy.Entity),
						})
					}
				}
				if s := policy.Masking.Strategy; s != "" && !contains(maskingStrategies, s) {
					errs = append(errs, Error{
						Path:         base + ".masking.strategy",
						Message:      fmt.Sprintf("Invalid masking strategy '%s'. Valid: %s", s, strings.Join(maskingStrategies, ", ")),
						Severity:     SeverityError,
						Code:         CodePolicyBadStrategy,
						Category:     CategoryPolicy,
						Actual:       s,
						ValidOptions: maskingStrategies,
					})
				}
			}
		}

		if policy.Retention != nil && policy.Retention.Period != "" {
			if !retentionPeriodRe.MatchString(policy.Retention.Period) {
				errs = append(errs, Error{
					Path:     base + ".retention.period",
					Message:  fmt.Sprintf("Invalid retention period format '%s'. Use format like '7 years', '90 days'", policy.Retention.Period),
					Severity: SeverityError,
					Code:     CodePolicyBadRetention,
					Category: CategoryPolicy,
					Actual:   policy.Retention.Period,
				})
			}
		}
	}

	return errs
}

// checkServices validates external service declarations: base URL shape,
// service and auth types, HTTP methods, and retry bounds.
func checkServices(ctx *docContext) []Error {
	var errs []Error

	for _, name := range ir.SortedKeys(ctx.doc.ExternalServices) {
		svc := ctx.doc.ExternalServices[name]
		base := "externalServices." + name

		if svc.BaseURL != "" && !serviceURLRe.MatchString(svc.BaseURL) {
			errs = append(errs, Error{
				Path:     base + ".baseUrl",
				Message:  fmt.Sprintf("Invalid base URL format: '%s'", svc.BaseURL),
				Severity: SeverityError,
				Code:     CodeServiceBadURL,
				Category: CategoryReference,
				Actual:   svc.BaseURL,
			})
		}

		svcType := svc.Type
		if svcType == "" {
			svcType = "rest"
		}
		if !contains(serviceTypes, svcType) {
			errs = append(errs, Error{
				Path:         base + ".type",
				Message:      fmt.Sprintf("Invalid service type '%s'. Valid: %s", svcType, strings.Join(serviceTypes, ", ")),
				Severity:     SeverityError,
				Code:         CodeServiceBadOp,
				Category:     CategoryReference,
				Actual:       svcType,
				ValidOptions: serviceTypes,
			})
		}

		if svc.Auth != nil && svc.Auth.Type != "" && !contains(serviceAuthTypes, svc.Auth.Type) {
			errs = append(errs, Error{
				Path:         base + ".auth.type",
				Message:      fmt.Sprintf("Invalid auth type '%s'. Valid: %s", svc.Auth.Type, strings.Join(serviceAuthTypes, ", ")),
				Severity:     SeverityError,
				Code:         CodeServiceBadAuth,
				Category:     CategoryReference,
				Actual:       svc.Auth.Type,
				ValidOptions: serviceAuthTypes,
			})
		}

		for _, opName := range ir.SortedKeys(svc.Operations) {
			op := svc.Operations[opName]
			if op.Method != "" && !contains(serviceHTTPMethods, op.Method) {
				errs = append(errs, Error{
					Path:         fmt.Sprintf("%s.operations.%s.method", base, opName),
					Message:      fmt.Sprintf("Invalid HTTP method '%s'. Valid: %s", op.Method, strings.Join(serviceHTTPMethods, ", ")),
					Severity:     SeverityError,
					Code:         CodeServiceBadOp,
					Category:     CategoryReference,
					Actual:       op.Method,
					ValidOptions: serviceHTTPMethods,
				})
			}
		}

		if svc.Retry != nil && svc.Retry.MaxAttempts < 1 {
			errs = append(errs, Error{
				Path:     base + ".retry.maxAttempts",
				Message:  "maxAttempts must be a positive integer",
				Severity: SeverityError,
				Code:     CodeServiceBadOp,
				Category: CategoryReference,
				Actual:   svc.Retry.MaxAttempts,
			})
		}
	}

	return errs
}
