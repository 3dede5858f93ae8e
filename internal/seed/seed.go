// Package seed provides database seeding utilities for development and testing.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"codegardener/internal/models"
	"codegardener/internal/service"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers    int
	NumPosts    int
	ShouldClean bool
}

// Every seeded account shares this password so developers can log in as anyone.
const seedPassword = "password123"

var (
	languages = []string{
		"go", "python", "java", "javascript", "typescript", "rust",
		"kotlin", "swift", "c", "cpp", "ruby", "php",
	}

	stacks = []string{
		"gin", "fiber", "spring", "react", "vue", "django",
		"rails", "postgres", "redis", "kafka", "docker", "kubernetes",
	}

	codeSamples = []string{
		"func sum(nums []int) int {\n\ttotal := 0\n\tfor _, n := range nums {\n\t\ttotal += n\n\t}\n\treturn total\n}",
		"def fib(n):\n    a, b = 0, 1\n    for _ in range(n):\n        a, b = b, a + b\n    return a",
		"function debounce(fn, ms) {\n  let t;\n  return (...args) => {\n    clearTimeout(t);\n    t = setTimeout(() => fn(...args), ms);\n  };\n}",
		"public int binarySearch(int[] a, int key) {\n    int lo = 0, hi = a.length - 1;\n    while (lo <= hi) {\n        int mid = (lo + hi) >>> 1;\n        if (a[mid] < key) lo = mid + 1;\n        else if (a[mid] > key) hi = mid - 1;\n        else return mid;\n    }\n    return -1;\n}",
		"SELECT u.username, COUNT(p.id) AS posts\nFROM users u\nJOIN posts p ON p.user_id = u.id\nGROUP BY u.username\nORDER BY posts DESC\nLIMIT 10;",
	}

	feedbackPhrases = []string{
		"Consider extracting this into a helper so the happy path stays readable.",
		"This loop allocates on every iteration. Hoisting the slice out would help.",
		"Nice use of early returns here. The error handling reads cleanly.",
		"The naming is a bit terse. A longer identifier would make intent clearer.",
		"You could cover the empty-input case with one more test.",
		"This works, but a map lookup would drop the complexity to O(1).",
		"Watch out for the off-by-one when the range is inclusive on both ends.",
	}
)

// Seeder populates the database with generated development data.
type Seeder struct {
	db  *gorm.DB
	rng *rand.Rand
}

// NewSeeder creates a Seeder bound to the provided Gorm DB.
func NewSeeder(db *gorm.DB) *Seeder {
	gofakeit.Seed(time.Now().UnixNano())
	return &Seeder{
		db:  db,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Seed populates the database with test data.
func (s *Seeder) Seed(opts Options) error {
	log.Printf("Seeding database with %d users and %d posts...", opts.NumUsers, opts.NumPosts)

	if opts.ShouldClean {
		if err := s.ClearAll(); err != nil {
			return fmt.Errorf("failed to clear existing data: %w", err)
		}
	}

	users, err := s.createUsers(opts.NumUsers)
	if err != nil {
		return fmt.Errorf("failed to create users: %w", err)
	}
	log.Printf("created %d users", len(users))

	posts, err := s.createPosts(users, opts.NumPosts)
	if err != nil {
		return fmt.Errorf("failed to create posts: %w", err)
	}
	log.Printf("created %d posts", len(posts))

	if err := s.createFeedback(users, posts); err != nil {
		return fmt.Errorf("failed to create feedback: %w", err)
	}

	if err := s.createEngagement(users, posts); err != nil {
		return fmt.Errorf("failed to create engagement: %w", err)
	}

	if err := s.reconcileCounters(); err != nil {
		return fmt.Errorf("failed to reconcile counters: %w", err)
	}

	log.Println("Seeding complete")
	return nil
}

// ClearAll deletes all seeded rows. Order matters because of foreign keys.
func (s *Seeder) ClearAll() error {
	tables := []interface{}{
		&models.FeedbackLike{},
		&models.FeedbackComment{},
		&models.LineFeedback{},
		&models.Feedback{},
		&models.PostLike{},
		&models.PostScrap{},
		&models.Post{},
		&models.Profile{},
		&models.User{},
	}
	for _, table := range tables {
		if err := s.db.Where("1 = 1").Delete(table).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) createUsers(count int) ([]*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	users := make([]*models.User, 0, count)
	for i := 0; i < count; i++ {
		username := fmt.Sprintf("%s%d", strings.ToLower(gofakeit.Username()), i)
		if len(username) > 20 {
			username = username[:20]
		}

		user := &models.User{
			Username: username,
			Email:    fmt.Sprintf("%s@%s", username, gofakeit.DomainName()),
			Password: string(hash),
			Role:     models.RoleUser,
		}
		if i == 0 {
			user.Role = models.RoleAdmin
		}
		if err := s.db.Create(user).Error; err != nil {
			return nil, err
		}

		points := s.rng.Intn(12000)
		attendance := time.Now().UTC().AddDate(0, 0, -s.rng.Intn(14))
		profile := &models.Profile{
			UserID:             user.ID,
			Picture:            fmt.Sprintf("https://picsum.photos/seed/%s/200/200", username),
			Points:             points,
			Grade:              service.GradeForPoints(points),
			LastAttendanceDate: &attendance,
		}
		if err := s.db.Create(profile).Error; err != nil {
			return nil, err
		}

		user.Profile = profile
		users = append(users, user)
	}
	return users, nil
}

func (s *Seeder) createPosts(users []*models.User, count int) ([]*models.Post, error) {
	if len(users) == 0 {
		return nil, nil
	}

	posts := make([]*models.Post, 0, count)
	for i := 0; i < count; i++ {
		author := users[s.rng.Intn(len(users))]
		isDevPost := s.rng.Intn(100) < 70

		post := &models.Post{
			UserID:       author.ID,
			Title:        strings.TrimSuffix(gofakeit.Sentence(5), "."),
			Content:      gofakeit.Paragraph(2, 4, 8, "\n\n"),
			Code:         codeSamples[s.rng.Intn(len(codeSamples))],
			Summary:      gofakeit.Sentence(12),
			ContentsType: isDevPost,
			LangTags:     s.pickTags(languages, 1+s.rng.Intn(3)),
			StackTags:    s.pickTags(stacks, 1+s.rng.Intn(3)),
			Views:        s.rng.Intn(500),
			CreatedAt:    s.pastTimestamp(60),
		}
		if !isDevPost {
			post.ProblemStatement = gofakeit.Paragraph(1, 3, 10, "\n")
		}
		if s.rng.Intn(2) == 0 {
			post.GithubRepoURL = fmt.Sprintf("https://github.com/%s/%s",
				strings.ToLower(gofakeit.Username()), gofakeit.Word())
		}
		if s.rng.Intn(100) < 80 {
			post.AIFeedback = fmt.Sprintf("Overall this looks solid. %s %s",
				feedbackPhrases[s.rng.Intn(len(feedbackPhrases))],
				feedbackPhrases[s.rng.Intn(len(feedbackPhrases))])
		}

		if err := s.db.Create(post).Error; err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, nil
}

func (s *Seeder) createFeedback(users []*models.User, posts []*models.Post) error {
	created := 0
	for _, post := range posts {
		for i := 0; i < s.rng.Intn(4); i++ {
			reviewer := users[s.rng.Intn(len(users))]
			if reviewer.ID == post.UserID {
				continue
			}

			feedback := &models.Feedback{
				PostID:    post.ID,
				UserID:    reviewer.ID,
				Content:   feedbackPhrases[s.rng.Intn(len(feedbackPhrases))],
				Rating:    float64(1+s.rng.Intn(9)) / 2,
				CreatedAt: s.pastTimestamp(30),
			}
			// first reviewer occasionally gets adopted
			if i == 0 && s.rng.Intn(100) < 25 {
				feedback.Adopted = true
			}
			if err := s.db.Create(feedback).Error; err != nil {
				return err
			}

			if s.rng.Intn(2) == 0 {
				line := 1 + s.rng.Intn(5)
				lf := &models.LineFeedback{
					FeedbackID: feedback.ID,
					UserID:     reviewer.ID,
					Line:       line,
					Content:    feedbackPhrases[s.rng.Intn(len(feedbackPhrases))],
				}
				if s.rng.Intn(2) == 0 {
					end := line + s.rng.Intn(3)
					lf.EndLine = &end
				}
				if err := s.db.Create(lf).Error; err != nil {
					return err
				}
			}

			if s.rng.Intn(3) == 0 {
				comment := &models.FeedbackComment{
					FeedbackID: feedback.ID,
					UserID:     post.UserID,
					Content:    gofakeit.Sentence(8),
				}
				if err := s.db.Create(comment).Error; err != nil {
					return err
				}
			}
			created++
		}
	}
	log.Printf("created %d feedback entries", created)
	return nil
}

func (s *Seeder) createEngagement(users []*models.User, posts []*models.Post) error {
	for _, post := range posts {
		for _, user := range users {
			if user.ID == post.UserID {
				continue
			}
			if s.rng.Intn(100) < 30 {
				like := &models.PostLike{UserID: user.ID, PostID: post.ID}
				if err := s.db.Create(like).Error; err != nil {
					return err
				}
			}
			if s.rng.Intn(100) < 15 {
				scrap := &models.PostScrap{UserID: user.ID, PostID: post.ID}
				if err := s.db.Create(scrap).Error; err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// reconcileCounters recomputes the denormalized counts from the seeded rows
// so profiles and posts agree with the engagement tables.
func (s *Seeder) reconcileCounters() error {
	statements := []string{
		`UPDATE posts SET likes_count = (SELECT COUNT(*) FROM post_likes WHERE post_likes.post_id = posts.id)`,
		`UPDATE posts SET scrap_count = (SELECT COUNT(*) FROM post_scraps WHERE post_scraps.post_id = posts.id)`,
		`UPDATE posts SET feedback_count = (SELECT COUNT(*) FROM feedbacks WHERE feedbacks.post_id = posts.id)`,
		`UPDATE profiles SET post_count = (SELECT COUNT(*) FROM posts WHERE posts.user_id = profiles.user_id)`,
		`UPDATE profiles SET total_feedback_count = (SELECT COUNT(*) FROM feedbacks WHERE feedbacks.user_id = profiles.user_id)`,
		`UPDATE profiles SET adopted_feedback_count = (SELECT COUNT(*) FROM feedbacks WHERE feedbacks.user_id = profiles.user_id AND feedbacks.adopted)`,
	}
	for _, stmt := range statements {
		if err := s.db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) pickTags(pool []string, n int) string {
	if n > len(pool) {
		n = len(pool)
	}
	picked := make(map[string]struct{}, n)
	for len(picked) < n {
		picked[pool[s.rng.Intn(len(pool))]] = struct{}{}
	}
	tags := make([]string, 0, n)
	for tag := range picked {
		tags = append(tags, tag)
	}
	return service.NormalizeCSV(strings.Join(tags, ","))
}

func (s *Seeder) pastTimestamp(maxDays int) time.Time {
	daysBack := s.rng.Intn(maxDays)
	hoursBack := s.rng.Intn(24)
	return time.Now().Add(-time.Duration(daysBack)*24*time.Hour - time.Duration(hoursBack)*time.Hour)
}
