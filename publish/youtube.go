package publish

import (
	"context"
	"fmt"
	"os"

	"moodcast/config"

	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// YouTubePublisher uploads videos with a service account
type YouTubePublisher struct {
	service *youtube.Service
	privacy string
	logger  *zap.Logger
}

// NewYouTubePublisher authenticates with the service account JSON file
func NewYouTubePublisher(ctx context.Context, serviceAccountFile string, logger *zap.Logger) (*YouTubePublisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	data, err := os.ReadFile(serviceAccountFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read service account file: %w", err)
	}

	jwt, err := google.JWTConfigFromJSON(data, youtube.YoutubeUploadScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse service account: %w", err)
	}

	service, err := youtube.NewService(ctx, option.WithHTTPClient(jwt.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create YouTube service: %w", err)
	}

	return &YouTubePublisher{service: service, privacy: config.YouTubePrivacyStatus, logger: logger}, nil
}

func (p *YouTubePublisher) Name() string { return "youtube" }

func (p *YouTubePublisher) Publish(ctx context.Context, v Video) (string, error) {
	file, err := os.Open(v.Path)
	if err != nil {
		return "", fmt.Errorf("failed to open video file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat video file: %w", err)
	}
	p.logger.Info("uploading to youtube",
		zap.String("job", v.JobID),
		zap.String("path", v.Path),
		zap.Float64("mb", float64(info.Size())/(1024*1024)),
	)

	meta := GenerateMetadata(v, config.YouTubeCategoryID)
	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       meta.Title,
			Description: meta.Description,
			Tags:        meta.Tags,
			CategoryId:  meta.CategoryID,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus:           p.privacy,
			SelfDeclaredMadeForKids: false,
		},
	}

	resp, err := p.service.Videos.Insert([]string{"snippet", "status"}, video).
		Media(file).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to upload video: %w", err)
	}

	url := "https://youtube.com/watch?v=" + resp.Id
	p.logger.Info("uploaded to youtube", zap.String("job", v.JobID), zap.String("url", url))
	return url, nil
}
