package catalog

import "github.com/jamesainslie/tidymac/pkg/tidymac/types"

// builtins is the static scan-target table. Order is presentation
// order for the disk-usage breakdown.
var builtins = []ScanTarget{
	{
		Name:      "User Cache Files",
		Category:  "Cache",
		Kind:      Tilde,
		Paths:     []string{"~/Library/Caches", "~/.cache"},
		Safety:    types.Safe,
		Reason:    "Application caches that will be regenerated automatically",
		Recursive: true,
	},
	{
		Name:      "User Log Files",
		Category:  "Log",
		Kind:      Tilde,
		Paths:     []string{"~/Library/Logs"},
		Safety:    types.Safe,
		Reason:    "Application logs that can be safely removed",
		Recursive: true,
	},
	{
		Name:       "System Log Files",
		Category:   "Log",
		Kind:       Literal,
		Paths:      []string{"/var/log"},
		Safety:     types.Caution,
		Reason:     "System logs; old entries are safe to remove",
		Recursive:  true,
		MinAgeDays: 7,
	},
	{
		Name:       "Temporary Files",
		Category:   "Temp",
		Kind:       Literal,
		Paths:      []string{"/tmp", "/var/folders"},
		Safety:     types.Safe,
		Reason:     "Temporary files created by the system and apps",
		Recursive:  true,
		MinAgeDays: 1,
	},
	{
		Name:      "User Trash",
		Category:  "Trash",
		Kind:      Tilde,
		Paths:     []string{"~/.Trash"},
		Safety:    types.Safe,
		Reason:    "Files in your trash bin",
		Recursive: true,
	},
	{
		Name:      "External Drive Trash",
		Category:  "Trash",
		Kind:      Glob,
		Paths:     []string{"/Volumes/*/.Trashes"},
		Safety:    types.Safe,
		Reason:    "Trash from external drives",
		Recursive: true,
	},
	{
		Name:      "Crash Reports",
		Category:  "Crash Reports",
		Kind:      Tilde,
		Paths:     []string{"~/Library/Logs/DiagnosticReports"},
		Safety:    types.Safe,
		Reason:    "Application crash reports; safe to remove unless debugging",
		Recursive: true,
	},
	{
		Name:      "QuickLook Thumbnails",
		Category:  "Cache",
		Kind:      Tilde,
		Paths:     []string{"~/Library/Caches/com.apple.QuickLook.thumbnailcache"},
		Safety:    types.Safe,
		Reason:    "Thumbnail preview caches; regenerated on demand",
		Recursive: true,
	},
	{
		Name:       "Downloaded Disk Images",
		Category:   "Downloads",
		Kind:       Tilde,
		Paths:      []string{"~/Downloads"},
		Safety:     types.Caution,
		Reason:     "Installer disk images; usually safe to remove after installation",
		Recursive:  false,
		MinAgeDays: 7,
		Extensions: []string{"dmg", "pkg"},
	},
	{
		Name:      "Mail Downloads",
		Category:  "Mail",
		Kind:      Tilde,
		Paths:     []string{"~/Library/Mail Downloads"},
		Safety:    types.Safe,
		Reason:    "Cached mail attachments; re-downloaded from the mail server",
		Recursive: true,
	},
	{
		Name:      "Mail Container Data",
		Category:  "Mail",
		Kind:      Tilde,
		Paths:     []string{"~/Library/Containers/com.apple.mail/Data/Library/Mail Downloads"},
		Safety:    types.Safe,
		Reason:    "Sandboxed mail attachment cache",
		Recursive: true,
	},
	{
		Name:      "Xcode DerivedData",
		Category:  "Dev: Xcode",
		Kind:      Tilde,
		Paths:     []string{"~/Library/Developer/Xcode/DerivedData"},
		Safety:    types.Safe,
		Reason:    "Build artifacts that Xcode regenerates on next build",
		Recursive: true,
	},
	{
		Name:       "Xcode Archives",
		Category:   "Dev: Xcode",
		Kind:       Tilde,
		Paths:      []string{"~/Library/Developer/Xcode/Archives"},
		Safety:     types.Caution,
		Reason:     "App Store submission archives; keep if you debug shipped versions",
		Recursive:  true,
		MinAgeDays: 90,
	},
	{
		Name:      "iOS Simulators",
		Category:  "Dev: Xcode",
		Kind:      Tilde,
		Paths:     []string{"~/Library/Developer/CoreSimulator/Devices"},
		Safety:    types.Caution,
		Reason:    "iOS simulator data; can be re-downloaded",
		Recursive: true,
	},
	{
		Name:      "Docker Data",
		Category:  "Dev: Docker",
		Kind:      Tilde,
		Paths:     []string{"~/Library/Containers/com.docker.docker/Data", "~/.docker"},
		Safety:    types.Caution,
		Reason:    "Docker images and volumes; use 'docker system prune' for granular control",
		Recursive: true,
	},
	{
		Name:      "Homebrew Cache",
		Category:  "Dev: Homebrew",
		Kind:      Tilde,
		Paths:     []string{"~/Library/Caches/Homebrew"},
		Safety:    types.Safe,
		Reason:    "Downloaded package archives; re-downloaded on demand",
		Recursive: true,
	},
	{
		Name:      "pip Cache",
		Category:  "Dev: Python",
		Kind:      Tilde,
		Paths:     []string{"~/Library/Caches/pip", "~/.cache/pip"},
		Safety:    types.Safe,
		Reason:    "Python package download cache; re-downloaded on demand",
		Recursive: true,
	},
	{
		Name:      "npm Cache",
		Category:  "Dev: Node",
		Kind:      Tilde,
		Paths:     []string{"~/.npm/_cacache"},
		Safety:    types.Safe,
		Reason:    "npm package cache; re-downloaded on demand",
		Recursive: true,
	},
	{
		Name:      "Yarn Cache",
		Category:  "Dev: Node",
		Kind:      Tilde,
		Paths:     []string{"~/Library/Caches/Yarn"},
		Safety:    types.Safe,
		Reason:    "Yarn package cache; re-downloaded on demand",
		Recursive: true,
	},
	{
		Name:      "pnpm Store",
		Category:  "Dev: Node",
		Kind:      Tilde,
		Paths:     []string{"~/Library/pnpm/store", "~/.local/share/pnpm/store"},
		Safety:    types.Safe,
		Reason:    "pnpm content-addressable store; re-downloaded on demand",
		Recursive: true,
	},
	{
		Name:      "CocoaPods Cache",
		Category:  "Dev: CocoaPods",
		Kind:      Tilde,
		Paths:     []string{"~/Library/Caches/CocoaPods"},
		Safety:    types.Safe,
		Reason:    "CocoaPods spec and download cache",
		Recursive: true,
	},
	{
		Name:      "Cargo Registry Cache",
		Category:  "Dev: Rust",
		Kind:      Tilde,
		Paths:     []string{"~/.cargo/registry/cache", "~/.cargo/registry/src"},
		Safety:    types.Safe,
		Reason:    "Rust crate download cache; re-downloaded on demand",
		Recursive: true,
	},
	{
		Name:      "Gradle Cache",
		Category:  "Dev: JVM",
		Kind:      Tilde,
		Paths:     []string{"~/.gradle/caches"},
		Safety:    types.Safe,
		Reason:    "Gradle build cache and dependency downloads",
		Recursive: true,
	},
	{
		Name:      "Maven Local Repository",
		Category:  "Dev: JVM",
		Kind:      Tilde,
		Paths:     []string{"~/.m2/repository"},
		Safety:    types.Caution,
		Reason:    "Maven dependency cache; may include locally installed artifacts",
		Recursive: true,
	},
	{
		Name:      "Conda Package Cache",
		Category:  "Dev: Python",
		Kind:      Tilde,
		Paths:     []string{"~/.conda/pkgs"},
		Safety:    types.Safe,
		Reason:    "Conda downloaded packages; re-downloaded on demand",
		Recursive: true,
	},
	{
		Name:      "Go Module Cache",
		Category:  "Dev: Go",
		Kind:      Tilde,
		Paths:     []string{"~/go/pkg/mod/cache"},
		Safety:    types.Safe,
		Reason:    "Go module download cache; re-downloaded on demand",
		Recursive: true,
	},
	{
		Name:     "Dev Project Artifacts",
		Category: "Dev: Projects",
		Kind:     Detector,
		Rule:     RuleDevProjects,
		Safety:   types.Caution,
		Reason:   "Dependency trees and build output inside project directories",
	},
	{
		Name:      "Large Files",
		Category:  "Large",
		Kind:      Detector,
		Rule:      RuleLargeFiles,
		Safety:    types.Caution,
		Reason:    "Individual files above the configured size threshold",
		Recursive: true,
	},
	{
		Name:      "Saved Application State",
		Category:  "Cache",
		Kind:      Tilde,
		Paths:     []string{"~/Library/Saved Application State"},
		Safety:    types.Caution,
		Reason:    "Window restoration state; apps forget open windows when removed",
		Recursive: true,
	},
	{
		Name:      "iOS Device Backups",
		Category:  "Backups",
		Kind:      Tilde,
		Paths:     []string{"~/Library/Application Support/MobileSync/Backup"},
		Safety:    types.Dangerous,
		Reason:    "Local device backups; removal loses the ability to restore devices",
		Recursive: true,
	},
}
