package ir

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Meta identifies a spec document.
type Meta struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name,omitempty"`
	Title       string `json:"title,omitempty"`
	Version     string `json:"version,omitempty"`
	Description string `json:"description,omitempty"`
}

// Entity is one declared entity with its field schema.
type Entity struct {
	Parent        string           `json:"parent,omitempty"`
	AggregateRoot bool             `json:"aggregateRoot,omitempty"`
	Description   string           `json:"description,omitempty"`
	Fields        map[string]Field `json:"fields,omitempty"`
}

// Derived is a derived formula attached to an entity field.
type Derived struct {
	Entity      string `json:"entity,omitempty"`
	Field       string `json:"field,omitempty"`
	Returns     string `json:"returns,omitempty"`
	Formula     Expr   `json:"formula,omitempty"`
	Description string `json:"description,omitempty"`
}

// Precondition guards a function with an expression and a failure reason.
type Precondition struct {
	Entity string `json:"entity,omitempty"`
	Expr   Expr   `json:"expr,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// Action is the payload of a post-action: exactly one of Create/Update/Delete
// names the target entity.
type Action struct {
	Create string          `json:"create,omitempty"`
	Update string          `json:"update,omitempty"`
	Delete string          `json:"delete,omitempty"`
	Target Expr            `json:"target,omitempty"`
	With   map[string]Expr `json:"with,omitempty"`
	Set    map[string]Expr `json:"set,omitempty"`
}

// TargetEntity returns the entity the action writes, regardless of verb.
func (a Action) TargetEntity() string {
	switch {
	case a.Create != "":
		return a.Create
	case a.Update != "":
		return a.Update
	default:
		return a.Delete
	}
}

// PostAction is one state change a function performs on success.
type PostAction struct {
	Action    Action `json:"action"`
	Condition Expr   `json:"condition,omitempty"`
}

// ErrorCase is a declared failure mode of a function.
type ErrorCase struct {
	Name string `json:"name,omitempty"`
	Code string `json:"code,omitempty"`
	When Expr   `json:"when,omitempty"`
}

// Function is a command: typed inputs/outputs, preconditions, post-actions,
// and declared error cases.
type Function struct {
	Entity      string           `json:"entity,omitempty"`
	Description string           `json:"description,omitempty"`
	Input       map[string]Field `json:"input,omitempty"`
	Output      map[string]Field `json:"output,omitempty"`
	Pre         []Precondition   `json:"pre,omitempty"`
	Post        []PostAction     `json:"post,omitempty"`
	Errors      []ErrorCase      `json:"error,omitempty"`
}

// GivenEntity seeds one entity instance in a scenario.
type GivenEntity struct {
	Entity string         `json:"entity"`
	With   map[string]any `json:"with,omitempty"`
}

// ScenarioCall names the function a scenario exercises.
type ScenarioCall struct {
	Call string         `json:"call,omitempty"`
	With map[string]any `json:"with,omitempty"`
}

// Scenario is one behavioral example: given state, a call, and expectations.
type Scenario struct {
	Description string        `json:"description,omitempty"`
	Given       []GivenEntity `json:"given,omitempty"`
	When        ScenarioCall  `json:"when,omitempty"`
	Then        []Expr        `json:"then,omitempty"`
}

// Invariant is a cross-cutting assertion over an entity.
type Invariant struct {
	ID          string `json:"id"`
	Entity      string `json:"entity,omitempty"`
	Assert      Expr   `json:"assert,omitempty"`
	Severity    string `json:"severity,omitempty"`
	Description string `json:"description,omitempty"`
}

// State is one declared state of a state machine.
type State struct {
	Description string `json:"description,omitempty"`
	Final       bool   `json:"final,omitempty"`
}

// Transition moves a state machine between states. From may name one state
// or several; Trigger is symbolic, TriggerFunction must name a declared
// function (or event).
type Transition struct {
	From            StringList `json:"from"`
	To              string     `json:"to"`
	Trigger         string     `json:"trigger,omitempty"`
	TriggerFunction string     `json:"trigger_function,omitempty"`
	Guard           Expr       `json:"guard,omitempty"`
}

// StateMachine tracks the lifecycle of one entity field.
type StateMachine struct {
	Entity      string           `json:"entity,omitempty"`
	Field       string           `json:"field,omitempty"`
	Initial     string           `json:"initial,omitempty"`
	States      map[string]State `json:"states,omitempty"`
	Transitions []Transition     `json:"transitions,omitempty"`
}

// Event is a declared domain event with an optional payload schema.
type Event struct {
	Description string           `json:"description,omitempty"`
	Payload     map[string]Field `json:"payload,omitempty"`
	EmittedBy   []string         `json:"emittedBy,omitempty"`
}

// Subscription routes an event to a handler function.
type Subscription struct {
	Event   string `json:"event,omitempty"`
	Handler string `json:"handler,omitempty"`
}

// SagaStep is one forward/compensate pair within a saga.
type SagaStep struct {
	Name       string   `json:"name,omitempty"`
	Forward    string   `json:"forward,omitempty"`
	Compensate string   `json:"compensate,omitempty"`
	DependsOn  []string `json:"dependsOn,omitempty"`
}

// Saga is an ordered multi-step workflow with compensation.
type Saga struct {
	Description string     `json:"description,omitempty"`
	Steps       []SagaStep `json:"steps,omitempty"`
	OnFailure   string     `json:"onFailure,omitempty"`
}

// EntityPermission grants operations on one entity to a role.
type EntityPermission struct {
	Entity     string   `json:"entity"`
	Operations []string `json:"operations,omitempty"`
}

// Role is a security role with optional inheritance.
type Role struct {
	Description       string             `json:"description,omitempty"`
	Inherits          []string           `json:"inherits,omitempty"`
	Permissions       []string           `json:"permissions,omitempty"`
	EntityPermissions []EntityPermission `json:"entityPermissions,omitempty"`
}

// Schedule triggers a function on a cron expression.
type Schedule struct {
	Cron          string `json:"cron,omitempty"`
	Timezone      string `json:"timezone,omitempty"`
	Action        string `json:"action,omitempty"`
	OverlapPolicy string `json:"overlapPolicy,omitempty"`
}

// Flow is one outgoing edge of a gateway.
type Flow struct {
	Target    string `json:"target,omitempty"`
	Condition Expr   `json:"condition,omitempty"`
	Event     string `json:"event,omitempty"`
}

// Gateway is a workflow branch point.
type Gateway struct {
	Type          string   `json:"type,omitempty"`
	IncomingFlows []string `json:"incomingFlows,omitempty"`
	OutgoingFlows []Flow   `json:"outgoingFlows,omitempty"`
}

// FieldCondition starts a deadline clock when a field takes a value.
type FieldCondition struct {
	Field  string `json:"field,omitempty"`
	Equals any    `json:"equals,omitempty"`
}

// Escalation fires when a deadline stage elapses.
type Escalation struct {
	After  string `json:"after,omitempty"`
	Event  string `json:"event,omitempty"`
	Action string `json:"action,omitempty"`
}

// Expire names what happens when a deadline fully elapses.
type Expire struct {
	Action string `json:"action,omitempty"`
	Event  string `json:"event,omitempty"`
}

// Deadline is an SLA attached to an entity.
type Deadline struct {
	Entity      string          `json:"entity,omitempty"`
	Duration    string          `json:"duration,omitempty"`
	StartWhen   *FieldCondition `json:"startWhen,omitempty"`
	Action      string          `json:"action,omitempty"`
	Escalations []Escalation    `json:"escalations,omitempty"`
	OnExpire    *Expire         `json:"onExpire,omitempty"`
}

// ServiceAuth describes how an external service is authenticated.
type ServiceAuth struct {
	Type   string `json:"type,omitempty"`
	Header string `json:"header,omitempty"`
}

// ServiceOperation is one callable operation of an external service.
type ServiceOperation struct {
	Method string `json:"method,omitempty"`
	Path   string `json:"path,omitempty"`
}

// RetryPolicy bounds external call retries.
type RetryPolicy struct {
	MaxAttempts int    `json:"maxAttempts,omitempty"`
	Backoff     string `json:"backoff,omitempty"`
}

// ExternalService is a declared third-party integration.
type ExternalService struct {
	Type       string                      `json:"type,omitempty"`
	BaseURL    string                      `json:"baseUrl,omitempty"`
	Auth       *ServiceAuth                `json:"auth,omitempty"`
	Operations map[string]ServiceOperation `json:"operations,omitempty"`
	Retry      *RetryPolicy                `json:"retry,omitempty"`
}

// ConstraintRef is the referenced side of a foreign-key constraint.
type ConstraintRef struct {
	Entity string `json:"entity,omitempty"`
	Field  string `json:"field,omitempty"`
}

// Constraint is a declared data-integrity rule.
type Constraint struct {
	Entity     string         `json:"entity,omitempty"`
	Type       string         `json:"type,omitempty"`
	Fields     []string       `json:"fields,omitempty"`
	Expr       Expr           `json:"expr,omitempty"`
	References *ConstraintRef `json:"references,omitempty"`
}

// Relation declares a named relationship between two entities.
type Relation struct {
	From       string            `json:"from,omitempty"`
	To         string            `json:"to,omitempty"`
	Type       string            `json:"type,omitempty"`
	ForeignKey string            `json:"foreignKey,omitempty"`
	Inverse    string            `json:"inverse,omitempty"`
	Cascade    map[string]string `json:"cascade,omitempty"`
}

// Masking configures field masking for a data policy.
type Masking struct {
	Fields   []string `json:"fields,omitempty"`
	Strategy string   `json:"strategy,omitempty"`
}

// Retention configures how long data is kept.
type Retention struct {
	Period string `json:"period,omitempty"`
	Action string `json:"action,omitempty"`
}

// DataPolicy declares PII handling for an entity.
type DataPolicy struct {
	Entity    string     `json:"entity,omitempty"`
	PIIFields []string   `json:"piiFields,omitempty"`
	Masking   *Masking   `json:"masking,omitempty"`
	Retention *Retention `json:"retention,omitempty"`
}

// AuditPolicy declares which operations on an entity are audited.
type AuditPolicy struct {
	Entity     string   `json:"entity,omitempty"`
	Fields     []string `json:"fields,omitempty"`
	Operations []string `json:"operations,omitempty"`
}

// Document is the full IR tree handed to the validator and graph builder.
type Document struct {
	Meta             Meta                       `json:"meta"`
	Entities         map[string]Entity          `json:"entities,omitempty"`
	Derived          map[string]Derived         `json:"derived,omitempty"`
	Functions        map[string]Function        `json:"functions,omitempty"`
	Scenarios        map[string]Scenario        `json:"scenarios,omitempty"`
	Invariants       []Invariant                `json:"invariants,omitempty"`
	StateMachines    map[string]StateMachine    `json:"stateMachines,omitempty"`
	Events           map[string]Event           `json:"events,omitempty"`
	Subscriptions    map[string]Subscription    `json:"subscriptions,omitempty"`
	Sagas            map[string]Saga            `json:"sagas,omitempty"`
	Roles            map[string]Role            `json:"roles,omitempty"`
	Schedules        map[string]Schedule        `json:"schedules,omitempty"`
	Gateways         map[string]Gateway         `json:"gateways,omitempty"`
	Deadlines        map[string]Deadline        `json:"deadlines,omitempty"`
	ExternalServices map[string]ExternalService `json:"externalServices,omitempty"`
	Constraints      map[string]Constraint      `json:"constraints,omitempty"`
	Relations        map[string]Relation        `json:"relations,omitempty"`
	DataPolicies     map[string]DataPolicy      `json:"dataPolicies,omitempty"`
	AuditPolicies    map[string]AuditPolicy     `json:"auditPolicies,omitempty"`
}

// docAliases carries the alternate section names producers may emit.
type docAliases struct {
	State    map[string]Entity   `json:"state"`
	Commands map[string]Function `json:"commands"`
}

// UnmarshalJSON decodes a document, resolving section aliases: "state" is
// accepted for "entities" and "commands" for "functions". When both spellings
// are present the canonical one wins.
func (d *Document) UnmarshalJSON(data []byte) error {
	type plain Document
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var aliases docAliases
	if err := json.Unmarshal(data, &aliases); err != nil {
		return err
	}
	*d = Document(p)
	if d.Entities == nil {
		d.Entities = aliases.State
	}
	if d.Functions == nil {
		d.Functions = aliases.Commands
	}
	return nil
}

// Decode parses a JSON-serialized IR document.
func Decode(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding spec document: %w", err)
	}
	if err := doc.Meta.compatibleVersion(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// FromValue converts a generic JSON-compatible tree (as produced by YAML or
// CUE decoding, or by patch application) into a typed Document.
func FromValue(v any) (*Document, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding spec tree: %w", err)
	}
	return Decode(data)
}

// SortedKeys returns the keys of a map in ascending order. Validators and
// the graph builder iterate sections through it so that two runs over the
// same document produce identical output ordering.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
