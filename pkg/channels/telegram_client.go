package channels

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/tinyland-inc/picorelay/pkg/enrich"
)

const maxDownloadBytes = 20 << 20

// userTraits are profile fields the Bot API only exposes on User objects
// seen in updates, never through getChat.
type userTraits struct {
	languageCode string
	isPremium    bool
}

// TelegramClient is the Bot API as seen by the relay engine and the
// enrichment trigger.
type TelegramClient struct {
	bot  *telego.Bot
	http *http.Client

	mu   sync.RWMutex
	seen map[int64]userTraits
}

// NewTelegramClient creates the bot. proxy, when set, routes every API
// call and file download through that URL.
func NewTelegramClient(token, proxy string) (*TelegramClient, error) {
	httpClient := &http.Client{Timeout: 60 * time.Second}
	if proxy != "" {
		proxyURL, err := url.Parse(proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL %q: %w", proxy, err)
		}
		httpClient.Transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
	}

	bot, err := telego.NewBot(token, telego.WithHTTPClient(httpClient), telego.WithDiscardLogger())
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &TelegramClient{
		bot:  bot,
		http: httpClient,
		seen: make(map[int64]userTraits),
	}, nil
}

// Bot exposes the underlying client for the update loop.
func (c *TelegramClient) Bot() *telego.Bot { return c.bot }

// Identify returns the bot's own user id.
func (c *TelegramClient) Identify(ctx context.Context) (int64, string, error) {
	me, err := c.bot.GetMe(ctx)
	if err != nil {
		return 0, "", fmt.Errorf("get bot identity: %w", err)
	}
	return me.ID, me.Username, nil
}

// Observe records traits of a user seen in an update.
func (c *TelegramClient) Observe(u *telego.User) {
	if u == nil || u.IsBot {
		return
	}
	c.mu.Lock()
	c.seen[u.ID] = userTraits{languageCode: u.LanguageCode, isPremium: u.IsPremium}
	c.mu.Unlock()
}

func (c *TelegramClient) traits(id int64) (userTraits, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.seen[id]
	return t, ok
}

// ResolveHandle implements relay.Platform.
func (c *TelegramClient) ResolveHandle(ctx context.Context, handle string) (int64, error) {
	if !strings.HasPrefix(handle, "@") {
		handle = "@" + handle
	}
	chat, err := c.bot.GetChat(ctx, &telego.GetChatParams{ChatID: tu.Username(handle)})
	if err != nil {
		return 0, err
	}
	return chat.ID, nil
}

// Handle implements relay.Platform.
func (c *TelegramClient) Handle(ctx context.Context, id int64) (string, error) {
	chat, err := c.bot.GetChat(ctx, &telego.GetChatParams{ChatID: tu.ID(id)})
	if err != nil {
		return "", err
	}
	return chat.Username, nil
}

// Send implements relay.Platform.
func (c *TelegramClient) Send(ctx context.Context, target int64, text string, replyTo int) (int, error) {
	params := tu.Message(tu.ID(target), text)
	if replyTo != 0 {
		params = params.WithReplyParameters(&telego.ReplyParameters{
			MessageID:                replyTo,
			AllowSendingWithoutReply: true,
		})
	}
	msg, err := c.bot.SendMessage(ctx, params)
	if err != nil {
		return 0, err
	}
	return msg.MessageID, nil
}

// Forward implements relay.Platform.
func (c *TelegramClient) Forward(ctx context.Context, target, fromChat int64, messageID int) error {
	_, err := c.bot.ForwardMessage(ctx, &telego.ForwardMessageParams{
		ChatID:     tu.ID(target),
		FromChatID: tu.ID(fromChat),
		MessageID:  messageID,
	})
	return err
}

// FetchProfile implements enrich.Source.
func (c *TelegramClient) FetchProfile(ctx context.Context, id int64) (*enrich.Profile, error) {
	chat, err := c.bot.GetChat(ctx, &telego.GetChatParams{ChatID: tu.ID(id)})
	if err != nil {
		return nil, err
	}
	p := &enrich.Profile{
		ID:        chat.ID,
		Username:  chat.Username,
		FirstName: chat.FirstName,
		LastName:  chat.LastName,
		Bio:       chat.Bio,
	}
	if p.Bio == "" {
		p.Bio = chat.Description
	}
	if t, ok := c.traits(id); ok {
		p.LanguageCode = t.languageCode
		premium := t.isPremium
		p.IsPremium = &premium
	}
	return p, nil
}

// ProfilePhotoRefs implements enrich.Source. Each ref is the file id of
// the largest size of one photo.
func (c *TelegramClient) ProfilePhotoRefs(ctx context.Context, id int64, limit int) ([]string, error) {
	photos, err := c.bot.GetUserProfilePhotos(ctx, &telego.GetUserProfilePhotosParams{
		UserID: id,
		Limit:  limit,
	})
	if err != nil {
		return nil, err
	}
	refs := make([]string, 0, len(photos.Photos))
	for _, sizes := range photos.Photos {
		if len(sizes) == 0 {
			continue
		}
		refs = append(refs, sizes[len(sizes)-1].FileID)
	}
	return refs, nil
}

// DownloadMedia implements enrich.Source.
func (c *TelegramClient) DownloadMedia(ctx context.Context, fileRef string) ([]byte, error) {
	file, err := c.bot.GetFile(ctx, &telego.GetFileParams{FileID: fileRef})
	if err != nil {
		return nil, err
	}
	if file.FilePath == "" {
		return nil, errors.New("file has no download path")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.bot.FileDownloadURL(file.FilePath), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: status %s", resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	if len(data) > maxDownloadBytes {
		return nil, fmt.Errorf("download file: larger than %s", humanize.IBytes(maxDownloadBytes))
	}
	return data, nil
}
