// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the record store to LLM clients via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/sanctum/internal/apperr"
	"github.com/starford/sanctum/internal/records"
	"github.com/starford/sanctum/internal/storage"
	"github.com/starford/sanctum/internal/tags"
)

const formatURI = "sanctum://record-format"

// Server wraps the MCP server with the record tools.
type Server struct {
	mcp   *server.MCPServer
	store *records.Store
	owner string
}

// New creates a new MCP server with all tools registered. Writes are made
// on behalf of owner.
func New(store *records.Store, owner string) *Server {
	s := &Server{store: store, owner: owner}

	s.mcp = server.NewMCPServer(
		"Sanctum",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	domainArg := mcp.WithString("domain", mcp.Required(),
		mcp.Description("Record domain"),
		mcp.Enum("book", "goal", "transaction", "journal", "meditation", "detox"),
	)

	s.mcp.AddTool(mcp.NewTool("list_records",
		mcp.WithDescription("List all records of one domain, newest first."),
		domainArg,
		mcp.WithString("sort", mcp.Description("Sort field; '-' prefix for descending (default -updated_date)")),
	), s.listRecords)

	s.mcp.AddTool(mcp.NewTool("get_record",
		mcp.WithDescription("Read one record by id."),
		domainArg,
		mcp.WithString("id", mcp.Required(), mcp.Description("Record id")),
	), s.getRecord)

	s.mcp.AddTool(mcp.NewTool("save_record",
		mcp.WithDescription("Create a record, or replace it when id is given. "+
			"The record is a JSON object following the sanctum://record-format resource."),
		domainArg,
		mcp.WithString("record", mcp.Required(), mcp.Description("Record fields as a JSON object")),
		mcp.WithString("id", mcp.Description("Id of the record to replace")),
	), s.saveRecord)

	s.mcp.AddTool(mcp.NewTool("delete_record",
		mcp.WithDescription("Delete a record by id."),
		domainArg,
		mcp.WithString("id", mcp.Required(), mcp.Description("Record id")),
	), s.deleteRecord)

	s.mcp.AddTool(mcp.NewTool("record_stats",
		mcp.WithDescription("Aggregate statistics for one domain."),
		domainArg,
	), s.recordStats)

	s.mcp.AddTool(mcp.NewTool("dashboard",
		mcp.WithDescription("Summary of every domain: stats, active goals, recent transactions and pinned notes."),
	), s.dashboard)

	s.mcp.AddTool(mcp.NewTool("log_transaction",
		mcp.WithDescription("Record income or an expense."),
		mcp.WithString("type", mcp.Required(), mcp.Enum("income", "expense")),
		mcp.WithNumber("amount", mcp.Required(), mcp.Description("Positive amount")),
		mcp.WithString("description", mcp.Required()),
		mcp.WithString("category", mcp.Description("Category; defaults to other")),
		mcp.WithString("date", mcp.Description("YYYY-MM-DD; defaults to today")),
	), s.logTransaction)

	s.mcp.AddTool(mcp.NewTool("update_book_progress",
		mcp.WithDescription("Move a book's bookmark. Reaching the last page finishes the book."),
		mcp.WithString("id", mcp.Required()),
		mcp.WithNumber("page", mcp.Required(), mcp.Min(0)),
	), s.updateBookProgress)

	s.mcp.AddTool(mcp.NewTool("update_goal_progress",
		mcp.WithDescription("Set a goal's progress percentage (clamped to 0-100)."),
		mcp.WithString("id", mcp.Required()),
		mcp.WithNumber("progress", mcp.Required()),
	), s.updateGoalProgress)

	s.mcp.AddTool(mcp.NewTool("write_journal",
		mcp.WithDescription("Add a journal entry. #hashtags in the content are tracked."),
		mcp.WithString("content", mcp.Required()),
		mcp.WithString("title"),
		mcp.WithString("date", mcp.Description("YYYY-MM-DD; defaults to today")),
	), s.writeJournal)

	s.mcp.AddTool(mcp.NewTool("log_meditation",
		mcp.WithDescription("Log a meditation session."),
		mcp.WithNumber("duration", mcp.Required(), mcp.Description("Length in minutes"), mcp.Min(1)),
		mcp.WithString("technique"),
	), s.logMeditation)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List plain notes, pinned first, optionally filtered by a search string."),
		mcp.WithString("query", mcp.Description("Case-insensitive substring of title or content")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a plain note. Titles starting with a record tag are rejected."),
		mcp.WithString("title"),
		mcp.WithString("content", mcp.Required()),
		mcp.WithBoolean("pinned"),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("get_record_format",
		mcp.WithDescription("Returns the record format contract. "+
			"Call this before writing records or notes."),
	), s.getRecordFormat)

	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Record Format Contract",
			mcp.WithResourceDescription("How typed records are stored inside notes."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readRecordFormatResource,
	)

	return s
}

// Serve answers requests read from in until in is exhausted or ctx is
// cancelled. It returns only after in-flight tool calls have finished, so
// the store stays usable until then.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	err := server.NewStdioServer(s.mcp).Listen(ctx, in, out)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) ctx(ctx context.Context) context.Context {
	return storage.WithOwner(ctx, s.owner)
}

func (s *Server) collection(req mcp.CallToolRequest) (records.Collection, error) {
	name, err := req.RequireString("domain")
	if err != nil {
		return nil, err
	}
	d, ok := tags.ParseDomain(name)
	if !ok {
		return nil, fmt.Errorf("unknown domain %q", name)
	}
	return s.store.Collection(d)
}

// jsonResult renders v as indented JSON text.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

// toolError turns a store error into a tool-level error result.
func toolError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError("not found")
	case errors.Is(err, apperr.ErrOperationFailed):
		return mcp.NewToolResultError("storage unavailable: " + err.Error())
	}
	return mcp.NewToolResultError(err.Error())
}

func (s *Server) listRecords(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	c, err := s.collection(req)
	if err != nil {
		return toolError(err), nil
	}
	items, err := c.List(s.ctx(ctx), storage.Sort(req.GetString("sort", "")))
	if err != nil {
		return toolError(err), nil
	}
	if items == nil {
		items = []any{}
	}
	return jsonResult(items)
}

func (s *Server) getRecord(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	c, err := s.collection(req)
	if err != nil {
		return toolError(err), nil
	}
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rec, err := c.Get(s.ctx(ctx), id)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(rec)
}

func (s *Server) saveRecord(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	c, err := s.collection(req)
	if err != nil {
		return toolError(err), nil
	}
	raw, err := req.RequireString("record")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rec, err := c.Save(s.ctx(ctx), req.GetString("id", ""), []byte(raw), "")
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(rec)
}

func (s *Server) deleteRecord(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	c, err := s.collection(req)
	if err != nil {
		return toolError(err), nil
	}
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := c.Delete(s.ctx(ctx), id); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText("deleted: " + id), nil
}

func (s *Server) recordStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	c, err := s.collection(req)
	if err != nil {
		return toolError(err), nil
	}
	stats, err := c.Stats(s.ctx(ctx))
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(stats)
}

func (s *Server) dashboard(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	d, err := s.store.Dashboard(s.ctx(ctx))
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(d)
}

func (s *Server) logTransaction(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	typ, err := req.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	amount, err := req.RequireFloat("amount")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	desc, err := req.RequireString("description")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tx, err := s.store.Transactions.Save(s.ctx(ctx), records.Transaction{
		Type:        records.TransactionType(strings.ToLower(typ)),
		Amount:      amount,
		Description: desc,
		Category:    req.GetString("category", ""),
		Date:        req.GetString("date", ""),
	})
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(tx)
}

func (s *Server) updateBookProgress(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	page, err := req.RequireFloat("page")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	book, err := s.store.Books.UpdateProgress(s.ctx(ctx), id, int(page))
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(book)
}

func (s *Server) updateGoalProgress(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	progress, err := req.RequireFloat("progress")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	goal, err := s.store.Goals.SetProgress(s.ctx(ctx), id, int(progress))
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(goal)
}

func (s *Server) writeJournal(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	entry, err := s.store.Journal.Save(s.ctx(ctx), records.JournalEntry{
		Title:   req.GetString("title", ""),
		Content: content,
		Date:    req.GetString("date", ""),
	})
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(entry)
}

func (s *Server) logMeditation(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	minutes, err := req.RequireFloat("duration")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	session, err := s.store.Meditations.Save(s.ctx(ctx), records.MeditationSession{
		Duration:  int(minutes),
		Technique: req.GetString("technique", ""),
	})
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(session)
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	notes, err := s.store.Notes.List(s.ctx(ctx), req.GetString("query", ""), "")
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(notes)
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.store.Notes.Create(s.ctx(ctx), req.GetString("title", ""), content, req.GetBool("pinned", false))
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s (%s)", note.Title, note.ID)), nil
}

func (s *Server) getRecordFormat(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(RecordFormatContract), nil
}

func (s *Server) readRecordFormatResource(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     RecordFormatContract,
		},
	}, nil
}
