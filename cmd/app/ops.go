package main

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
)

// op describes one remote call for both transports. Params go to the
// JSON-RPC method; the HTTP request uses method, path and body.
type op struct {
	rpc    string
	params map[string]any
	method string
	path   string
	body   any
}

func (cfg cliConfig) do(ctx context.Context, o op, out any) error {
	if cfg.Transport == "uds" {
		params := map[string]any{"token": cfg.Token}
		for k, v := range o.params {
			params[k] = v
		}
		return newRPCClient(cfg.Socket).call(ctx, o.rpc, params, out)
	}
	method := o.method
	if method == "" {
		method = http.MethodGet
	}
	return newAPIClient(cfg.Server, cfg.Token).request(ctx, method, o.path, o.body, out)
}

func get(rpc string, params map[string]any, path string) op {
	return op{rpc: rpc, params: params, method: http.MethodGet, path: path}
}

// send builds a write whose HTTP body carries the same fields as the RPC
// params.
func send(rpc, method, path string, params map[string]any) op {
	return op{rpc: rpc, params: params, method: method, path: path, body: params}
}

func withQuery(path string, values url.Values) string {
	if encoded := values.Encode(); encoded != "" {
		return path + "?" + encoded
	}
	return path
}

func pageValues(page int) url.Values {
	values := url.Values{}
	if page > 0 {
		values.Set("page", strconv.Itoa(page))
	}
	return values
}

func doLogin(ctx context.Context, cfg cliConfig, login, password, tokenName string, ttlHours int, out any) error {
	params := map[string]any{"login": login, "password": password, "token_name": tokenName, "ttl_hours": ttlHours}
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "auth.login", params, out)
	}
	params["mode"] = "token"
	return newAPIClient(cfg.Server, "").request(ctx, http.MethodPost, "/api/auth/login", params, out)
}

func opWhoAmI() op { return get("auth.whoami", nil, "/api/auth/whoami") }

func opLogout() op { return op{rpc: "auth.logout", method: http.MethodPost, path: "/api/auth/logout"} }

func opRootCommunities() op { return get("communities.roots", nil, "/api/communities") }

func opAllCommunities() op { return get("communities.list", nil, "/api/admin/communities") }

func opCommunity(communityID uint) op {
	return get("communities.get", map[string]any{"id": communityID}, "/api/communities/"+uintToString(communityID))
}

func opSaveCommunity(communityID uint, fields map[string]any) op {
	if communityID == 0 {
		return send("communities.create", http.MethodPost, "/api/admin/communities", fields)
	}
	o := send("communities.update", http.MethodPut, "/api/admin/communities/"+uintToString(communityID), fields)
	o.params = merge(fields, map[string]any{"id": communityID})
	return o
}

func opDeleteCommunity(communityID uint) op {
	return op{rpc: "communities.delete", params: map[string]any{"id": communityID}, method: http.MethodDelete, path: "/api/admin/communities/" + uintToString(communityID)}
}

func opCollections(communityID *uint) op {
	values := url.Values{}
	params := map[string]any{}
	if communityID != nil {
		values.Set("community_id", uintToString(*communityID))
		params["community_id"] = *communityID
	}
	return get("collections.list", params, withQuery("/api/collections", values))
}

func opCollection(collectionID uint, page int) op {
	return get("collections.get", map[string]any{"id": collectionID, "page": page},
		withQuery("/api/collections/"+uintToString(collectionID), pageValues(page)))
}

func opSaveCollection(collectionID uint, fields map[string]any) op {
	if collectionID == 0 {
		return send("collections.create", http.MethodPost, "/api/admin/collections", fields)
	}
	o := send("collections.update", http.MethodPut, "/api/admin/collections/"+uintToString(collectionID), fields)
	o.params = merge(fields, map[string]any{"id": collectionID})
	return o
}

func opDeleteCollection(collectionID uint) op {
	return op{rpc: "collections.delete", params: map[string]any{"id": collectionID}, method: http.MethodDelete, path: "/api/admin/collections/" + uintToString(collectionID)}
}

func opCreateItem(collectionID uint, title string, metadata []map[string]string) op {
	return send("items.create", http.MethodPost, "/api/submit/items", map[string]any{
		"collection_id": collectionID, "title": title, "metadata": metadata,
	})
}

func opItem(itemID uint) op {
	return get("items.get", map[string]any{"id": itemID}, "/api/submit/items/"+uintToString(itemID))
}

func opPublishedItem(itemID uint) op {
	return get("items.published", map[string]any{"id": itemID}, "/api/items/"+uintToString(itemID))
}

func opRecentItems() op { return get("items.recent", nil, "/api/items/recent") }

func opRetitleItem(itemID uint, title string) op {
	o := send("items.update", http.MethodPut, "/api/submit/items/"+uintToString(itemID), map[string]any{"title": title})
	o.params = map[string]any{"id": itemID, "title": title}
	return o
}

func opSubmitItem(itemID uint) op {
	return op{rpc: "items.submit", params: map[string]any{"id": itemID}, method: http.MethodPost, path: "/api/submit/items/" + uintToString(itemID) + "/submit"}
}

func opMySubmissions(page int) op {
	return get("items.mine", map[string]any{"page": page}, withQuery("/api/submit/mine", pageValues(page)))
}

func opAllItems(status string, page int) op {
	values := pageValues(page)
	if status != "" {
		values.Set("status", status)
	}
	return get("items.list", map[string]any{"status": status, "page": page}, withQuery("/api/admin/items", values))
}

func opAdminUpdateItem(itemID uint, fields map[string]any) op {
	o := send("items.admin_update", http.MethodPut, "/api/admin/items/"+uintToString(itemID), fields)
	o.params = merge(fields, map[string]any{"id": itemID})
	return o
}

func opDeleteItem(itemID uint) op {
	return op{rpc: "items.delete", params: map[string]any{"id": itemID}, method: http.MethodDelete, path: "/api/admin/items/" + uintToString(itemID)}
}

func itemPath(itemID uint, admin bool) string {
	if admin {
		return "/api/admin/items/" + uintToString(itemID)
	}
	return "/api/submit/items/" + uintToString(itemID)
}

func opMetadata(itemID uint) op {
	return get("metadata.list", map[string]any{"item_id": itemID}, itemPath(itemID, false)+"/metadata")
}

func opAddMetadata(itemID uint, key, value string, admin bool) op {
	return op{
		rpc:    "metadata.add",
		params: map[string]any{"item_id": itemID, "key": key, "value": value, "admin": admin},
		method: http.MethodPost,
		path:   itemPath(itemID, admin) + "/metadata",
		body:   map[string]any{"key": key, "value": value},
	}
}

func opUpdateMetadata(itemID uint, updates []map[string]any) op {
	return op{
		rpc:    "metadata.update",
		params: map[string]any{"item_id": itemID, "updates": updates},
		method: http.MethodPut,
		path:   itemPath(itemID, false) + "/metadata",
		body:   updates,
	}
}

func opDeleteMetadata(itemID, fieldID uint) op {
	return op{
		rpc:    "metadata.delete",
		params: map[string]any{"item_id": itemID, "metadata_id": fieldID},
		method: http.MethodDelete,
		path:   itemPath(itemID, false) + "/metadata/" + uintToString(fieldID),
	}
}

func opBitstreams(itemID uint) op {
	return get("bitstreams.list", map[string]any{"item_id": itemID}, itemPath(itemID, false)+"/bitstreams")
}

func opDeleteBitstream(itemID, bitstreamID uint) op {
	return op{
		rpc:    "bitstreams.delete",
		params: map[string]any{"item_id": itemID, "bitstream_id": bitstreamID},
		method: http.MethodDelete,
		path:   itemPath(itemID, false) + "/bitstreams/" + uintToString(bitstreamID),
	}
}

// doUpload streams over HTTP. The socket transport has no streaming, so
// the file is sent inline.
func doUpload(ctx context.Context, cfg cliConfig, itemID uint, file string, out any) error {
	if cfg.Transport != "uds" {
		return newAPIClient(cfg.Server, cfg.Token).upload(ctx, itemPath(itemID, false)+"/bitstreams", file, out)
	}
	content, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	return newRPCClient(cfg.Socket).call(ctx, "bitstreams.upload", map[string]any{
		"token": cfg.Token, "item_id": itemID, "name": filepath.Base(file), "content": content,
	}, out)
}

func doDownload(ctx context.Context, cfg cliConfig, bitstreamID uint, w io.Writer) error {
	if cfg.Transport != "uds" {
		return newAPIClient(cfg.Server, cfg.Token).download(ctx, "/api/download/"+uintToString(bitstreamID), w)
	}
	var out struct {
		Content string `json:"content"`
	}
	err := newRPCClient(cfg.Socket).call(ctx, "bitstreams.download", map[string]any{"token": cfg.Token, "bitstream_id": bitstreamID}, &out)
	if err != nil {
		return err
	}
	content, err := base64.StdEncoding.DecodeString(out.Content)
	if err != nil {
		return err
	}
	_, err = w.Write(content)
	return err
}

func opReviewQueue(page int) op {
	return get("review.queue", map[string]any{"page": page}, withQuery("/api/review/queue", pageValues(page)))
}

func opReview(itemID uint, status string) op {
	return op{
		rpc:    "review.decide",
		params: map[string]any{"item_id": itemID, "status": status},
		method: http.MethodPut,
		path:   "/api/review/" + uintToString(itemID),
		body:   map[string]any{"status": status},
	}
}

func opSearch(query map[string]any) op {
	return op{rpc: "search", params: query, method: http.MethodPost, path: "/api/search/advanced", body: query}
}

func opBrowseAuthors(page int) op {
	return get("browse.authors", map[string]any{"page": page}, withQuery("/api/browse/authors", pageValues(page)))
}

// discover and statistics reads share a name between both transports.
var (
	discoverRoutes = map[string][2]string{
		"authors":    {"discover.authors", "/api/discover/authors"},
		"subjects":   {"discover.subjects", "/api/discover/subjects"},
		"years":      {"discover.years", "/api/discover/dates"},
		"date-range": {"discover.date_range", "/api/discover/date-range"},
	}
	statsRoutes = map[string][2]string{
		"summary":               {"stats.summary", "/api/statistics/summary"},
		"top-authors":           {"stats.top_authors", "/api/statistics/top-authors"},
		"top-downloads":         {"stats.top_downloads", "/api/statistics/top-downloads"},
		"downloads-over-time":   {"stats.downloads_over_time", "/api/statistics/downloads-over-time"},
		"submissions-over-time": {"stats.submissions_over_time", "/api/statistics/submissions-over-time"},
		"submissions-by-type":   {"stats.submissions_by_type", "/api/statistics/submissions-by-type"},
		"active-collections":    {"stats.active_collections", "/api/statistics/most-active-collections"},
	}
)

func opRead(routes map[string][2]string, name string) op {
	r := routes[name]
	return get(r[0], nil, r[1])
}

func opUsers(q string, limit int) op {
	values := url.Values{}
	if q != "" {
		values.Set("q", q)
	}
	if limit > 0 {
		values.Set("limit", strconv.Itoa(limit))
	}
	return get("users.list", map[string]any{"q": q, "limit": limit}, withQuery("/api/admin/users", values))
}

func opUser(userID uint) op {
	return get("users.get", map[string]any{"id": userID}, "/api/admin/users/"+uintToString(userID))
}

func opCreateUser(fields map[string]any) op {
	return send("users.create", http.MethodPost, "/api/admin/users", fields)
}

func opUpdateUser(userID uint, fields map[string]any) op {
	o := send("users.update", http.MethodPut, "/api/admin/users/"+uintToString(userID), fields)
	o.params = merge(fields, map[string]any{"id": userID})
	return o
}

func opDeleteUser(userID uint) op {
	return op{rpc: "users.delete", params: map[string]any{"id": userID}, method: http.MethodDelete, path: "/api/admin/users/" + uintToString(userID)}
}

func opAudit(limit int) op {
	values := url.Values{}
	if limit > 0 {
		values.Set("limit", strconv.Itoa(limit))
	}
	return get("audit.list", map[string]any{"limit": limit}, withQuery("/api/admin/audit", values))
}

func merge(a, b map[string]any) map[string]any {
	out := make(map[string]any, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}
