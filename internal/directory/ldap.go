// Package directory implements the domain Directory port against an
// LDAP directory service (Active Directory).
package directory

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"

	"github.com/chrisskurda/csv-to-dg/internal/domain"
)

// AD groupType bits. Distribution groups omit the security bit.
const (
	groupTypeGlobal      = 0x00000002
	groupTypeDomainLocal = 0x00000004
	groupTypeUniversal   = 0x00000008
	groupTypeSecurity    = -0x80000000
)

// Options holds connection and search-base parameters for the LDAP
// client.
type Options struct {
	Server       string
	Port         int
	UseTLS       bool
	BindDN       string
	BindPassword string
	UserBaseDN   string        // search base for resolving emails
	GroupBaseDN  string        // search base for the group lookup
	Timeout      time.Duration // per-call deadline
}

// Client is an LDAP-backed implementation of domain.Directory.
type Client struct {
	conn   *ldap.Conn
	opts   Options
	logger *slog.Logger
}

// Dial connects and binds to the directory server. The configured
// timeout bounds every subsequent request.
func Dial(opts Options, logger *slog.Logger) (*Client, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	scheme := "ldap"
	var dialOpts []ldap.DialOpt
	if opts.UseTLS {
		scheme = "ldaps"
		dialOpts = append(dialOpts, ldap.DialWithTLSConfig(&tls.Config{
			ServerName: opts.Server,
			MinVersion: tls.VersionTLS12,
		}))
	}

	url := fmt.Sprintf("%s://%s:%d", scheme, opts.Server, opts.Port)
	conn, err := ldap.DialURL(url, dialOpts...)
	if err != nil {
		return nil, domain.ErrDirectory("connect", "%s: %v", url, err)
	}
	conn.SetTimeout(opts.Timeout)

	if opts.BindDN != "" {
		if err := conn.Bind(opts.BindDN, opts.BindPassword); err != nil {
			_ = conn.Close()
			return nil, domain.ErrDirectory("bind", "%s: %v", opts.BindDN, err)
		}
	}

	return &Client{conn: conn, opts: opts, logger: logger}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() {
	_ = c.conn.Close()
}

// search runs a bounded subtree search. The go-ldap API has no context
// parameter; the context is checked up front and the connection timeout
// bounds the wait.
func (c *Client) search(ctx context.Context, baseDN, filter string, attrs []string) (*ldap.SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	req := ldap.NewSearchRequest(
		baseDN,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 0, int(c.opts.Timeout.Seconds()), false,
		filter, attrs, nil,
	)
	return c.conn.Search(req)
}

func (c *Client) ResolveEmail(ctx context.Context, email string) (domain.MemberID, error) {
	filter := fmt.Sprintf("(&(objectClass=user)(mail=%s))", ldap.EscapeFilter(email))
	res, err := c.search(ctx, c.opts.UserBaseDN, filter, []string{"dn"})
	if err != nil {
		return "", domain.ErrDirectory("resolve email", "%s: %v", email, err)
	}
	if len(res.Entries) == 0 {
		return "", domain.ErrNotFound("no directory identity for %s", email)
	}
	return domain.MemberID(res.Entries[0].DN), nil
}

// groupAttrs are the attributes fetched on group lookup: membership
// plus every managed attribute.
func groupAttrs() []string {
	attrs := []string{"cn", "mail", "member"}
	for _, a := range domain.ManagedAttrs() {
		attrs = append(attrs, string(a))
	}
	return attrs
}

func (c *Client) GetGroup(ctx context.Context, name string) (*domain.Group, error) {
	filter := fmt.Sprintf("(&(objectClass=group)(cn=%s))", ldap.EscapeFilter(name))
	res, err := c.search(ctx, c.opts.GroupBaseDN, filter, groupAttrs())
	if err != nil {
		return nil, domain.ErrDirectory("lookup group", "%s: %v", name, err)
	}
	if len(res.Entries) == 0 {
		return nil, domain.ErrNotFound("group %s does not exist", name)
	}

	entry := res.Entries[0]
	attrs := domain.AttributeSet{}
	for _, a := range domain.ManagedAttrs() {
		if vals := entry.GetAttributeValues(string(a)); len(vals) > 0 {
			attrs[a] = vals
		}
	}
	return &domain.Group{
		DN:         domain.MemberID(entry.DN),
		Name:       entry.GetAttributeValue("cn"),
		Mail:       entry.GetAttributeValue("mail"),
		Attributes: attrs,
	}, nil
}

// groupType maps the configured scope/category to the AD groupType
// bitmask.
func groupType(scope, category string) int32 {
	var gt int32
	switch scope {
	case "Global":
		gt = groupTypeGlobal
	case "DomainLocal":
		gt = groupTypeDomainLocal
	default:
		gt = groupTypeUniversal
	}
	if category == "Security" {
		gt |= groupTypeSecurity
	}
	return gt
}

func (c *Client) CreateGroup(ctx context.Context, spec domain.GroupSpec) (*domain.Group, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dn := fmt.Sprintf("CN=%s,%s", spec.Name, spec.OUPath)
	req := ldap.NewAddRequest(dn, nil)
	req.Attribute("objectClass", []string{"top", "group"})
	req.Attribute("cn", []string{spec.Name})
	req.Attribute("sAMAccountName", []string{spec.Name})
	req.Attribute("groupType", []string{fmt.Sprintf("%d", groupType(spec.Scope, spec.Category))})
	if spec.Mail != "" {
		req.Attribute("mail", []string{spec.Mail})
	}

	if err := c.conn.Add(req); err != nil {
		return nil, domain.ErrDirectory("create group", "%s: %v", dn, err)
	}
	c.logger.Info("group created", "dn", dn, "scope", spec.Scope, "category", spec.Category)

	return &domain.Group{
		DN:         domain.MemberID(dn),
		Name:       spec.Name,
		Mail:       spec.Mail,
		Attributes: domain.AttributeSet{},
	}, nil
}

func (c *Client) ReplaceAttributes(ctx context.Context, group domain.MemberID, changes []domain.AttrChange) error {
	if len(changes) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	req := ldap.NewModifyRequest(string(group), nil)
	for _, ch := range changes {
		// Replace with no values clears the attribute.
		req.Replace(string(ch.Name), ch.After)
	}
	if err := c.conn.Modify(req); err != nil {
		return domain.ErrDirectory("replace attributes", "%s: %v", group, err)
	}
	return nil
}

// ListMembers reads the full membership. Active Directory returns
// large memberships as ranged pages (the attribute comes back named
// "member;range=0-1499" instead of "member"), so the listing keeps
// requesting the next range until the final page.
func (c *Client) ListMembers(ctx context.Context, group domain.MemberID) (domain.MemberSet, error) {
	members := domain.NewMemberSet()
	attr := "member"
	for {
		res, err := c.search(ctx, string(group), "(objectClass=group)", []string{attr})
		if err != nil {
			return nil, domain.ErrDirectory("list members", "%s: %v", group, err)
		}
		if len(res.Entries) == 0 {
			return nil, domain.ErrNotFound("group %s does not exist", group)
		}

		next, done := collectMembers(res.Entries[0], members)
		if done {
			return members, nil
		}
		attr = fmt.Sprintf("%s%d-*", memberRangePrefix, next)
	}
}

const memberRangePrefix = "member;range="

// collectMembers copies member DNs from the entry into members and
// reports whether more ranged pages remain; next is the first index of
// the following page when done is false.
func collectMembers(entry *ldap.Entry, members domain.MemberSet) (next int, done bool) {
	done = true
	for _, a := range entry.Attributes {
		if a.Name != "member" && !strings.HasPrefix(a.Name, memberRangePrefix) {
			continue
		}
		for _, dn := range a.Values {
			members.Add(domain.MemberID(dn))
		}
		if end, last, ok := parseMemberRange(a.Name); ok && !last {
			next, done = end+1, false
		}
	}
	return next, done
}

// parseMemberRange reads the end index out of a ranged member
// attribute name like "member;range=0-1499". The final page is named
// with a "*" end ("member;range=1500-*").
func parseMemberRange(name string) (end int, last, ok bool) {
	spec, found := strings.CutPrefix(name, memberRangePrefix)
	if !found {
		return 0, false, false
	}
	_, high, found := strings.Cut(spec, "-")
	if !found {
		return 0, false, false
	}
	if high == "*" {
		return 0, true, true
	}
	n, err := strconv.Atoi(high)
	if err != nil {
		return 0, false, false
	}
	return n, false, true
}

func (c *Client) AddMember(ctx context.Context, group, member domain.MemberID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	req := ldap.NewModifyRequest(string(group), nil)
	req.Add("member", []string{string(member)})
	if err := c.conn.Modify(req); err != nil {
		return domain.ErrDirectory("add member", "%s: %v", member, err)
	}
	return nil
}

func (c *Client) RemoveMember(ctx context.Context, group, member domain.MemberID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	req := ldap.NewModifyRequest(string(group), nil)
	req.Delete("member", []string{string(member)})
	if err := c.conn.Modify(req); err != nil {
		return domain.ErrDirectory("remove member", "%s: %v", member, err)
	}
	return nil
}
