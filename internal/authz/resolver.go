// Package authz evaluates resource access by walking the fixed ownership
// chain of each resource type up to its business and comparing the owning
// principal. It is a pure predicate over the repository snapshot it is
// handed: callers pass the transactional repository set so the check and
// the mutation it gates see the same state.
package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/helloml/agent-core/internal/domain"
	"github.com/helloml/agent-core/internal/repository"
)

// ResourceType identifies one of the seven entity kinds in the hierarchy.
type ResourceType string

const (
	ResourceBusiness      ResourceType = "business"
	ResourceAgent         ResourceType = "agent"
	ResourcePhoneNumber   ResourceType = "phone_number"
	ResourceDocument      ResourceType = "document"
	ResourceDocumentChunk ResourceType = "document_chunk"
	ResourceConversation  ResourceType = "conversation"
	ResourceMessage       ResourceType = "message"
)

// Operation is the kind of access being evaluated. The predicate is the
// same for all four kinds: either the caller owns the chain or they do
// not. The operation is still part of the contract so call sites state
// their intent and the decision can be logged meaningfully.
type Operation string

const (
	OperationRead   Operation = "read"
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

// Authorize walks the ownership chain of (resource, id) to its business
// and allows the operation iff the business owner is principalID.
//
// A missing link anywhere on the chain (orphan row, already-deleted
// ancestor) resolves to domain.ErrNotFound; an owner mismatch resolves to
// domain.ErrForbidden. Callers must render both identically to external
// clients so cross-tenant probes cannot distinguish "absent" from "not
// yours".
func Authorize(ctx context.Context, repos repository.RepositoryManager, principalID string, resource ResourceType, id uint, op Operation) error {
	business, err := resolveBusiness(ctx, repos, resource, id)
	if err != nil {
		return err
	}
	if business.OwnerUserID != principalID {
		return fmt.Errorf("%s %d (%s): %w", resource, id, op, domain.ErrForbidden)
	}
	return nil
}

// AuthorizeCreate authorizes creation of a child resource against its
// parent's ownership chain: the child does not exist yet, so the ascent
// starts one level up (e.g. agent creation resolves via the business id).
func AuthorizeCreate(ctx context.Context, repos repository.RepositoryManager, principalID string, parent ResourceType, parentID uint) error {
	return Authorize(ctx, repos, principalID, parent, parentID, OperationCreate)
}

// resolveBusiness follows the ascent path of the resource type, one
// foreign key per hop, to the root business row.
func resolveBusiness(ctx context.Context, repos repository.RepositoryManager, resource ResourceType, id uint) (*domain.Business, error) {
	switch resource {
	case ResourceBusiness:
		return repos.Business().GetByID(ctx, id)

	case ResourceAgent:
		agent, err := repos.Agent().GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return repos.Business().GetByID(ctx, agent.BusinessID)

	case ResourcePhoneNumber:
		number, err := repos.PhoneNumber().GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return resolveBusiness(ctx, repos, ResourceAgent, number.AgentID)

	case ResourceDocument:
		doc, err := repos.Document().GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return resolveBusiness(ctx, repos, ResourceAgent, doc.AgentID)

	case ResourceDocumentChunk:
		chunk, err := repos.Document().GetChunkByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return resolveBusiness(ctx, repos, ResourceDocument, chunk.DocumentID)

	case ResourceConversation:
		conversation, err := repos.Conversation().GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return resolveBusiness(ctx, repos, ResourceAgent, conversation.AgentID)

	case ResourceMessage:
		message, err := repos.Message().GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return resolveBusiness(ctx, repos, ResourceConversation, message.ConversationID)

	default:
		return nil, fmt.Errorf("unknown resource type %q: %w", resource, domain.ErrNotFound)
	}
}

// Denied reports whether err is an authorization denial, i.e. either of
// the two indistinguishable-outside outcomes.
func Denied(err error) bool {
	return errors.Is(err, domain.ErrForbidden) || errors.Is(err, domain.ErrNotFound)
}
